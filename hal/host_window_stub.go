//go:build !cgo

package hal

import "errors"

func RunWindow(_ HostConfig, _ func(HAL) StepFunc) error {
	return errors.New("window mode requires cgo (build/run with CGO_ENABLED=1)")
}
