//go:build !linux

package driver

import "errors"

func defaultBackend() (Backend, error) {
	return NewMalgo(), nil
}

func NewPulse() (Backend, error) {
	return nil, errors.New("pulse backend is only available on linux")
}
