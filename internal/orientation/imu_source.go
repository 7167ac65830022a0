// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

type imuSource struct {
	imu *mpu9250.MPU9250
}

// NewIMUSource initializes an MPU9250 over SPI and returns a Source that
// reports beta/gamma tilt from the accelerometer. The rig has no heading
// fusion, so readings come without alpha (treated as 0 downstream).
func NewIMUSource(spiDevice, csPin string) (Source, error) {
	// Initialize periph host once.
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU SPI transport %s: %w", spiDevice, err)
	}

	imu, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("IMU new device: %w", err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("IMU init: %w", err)
	}
	if err := imu.Calibrate(); err != nil {
		return nil, fmt.Errorf("IMU calibrate: %w", err)
	}

	return &imuSource{imu: imu}, nil
}

// Next reads the accelerometer and converts the gravity direction into a
// device-orientation reading.
func (s *imuSource) Next() (Reading, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return Reading{}, fmt.Errorf("IMU acc X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return Reading{}, fmt.Errorf("IMU acc Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return Reading{}, fmt.Errorf("IMU acc Z: %w", err)
	}

	// Only ratios matter for tilt, raw counts are fine.
	return ComputeTiltFromAccel(float64(ax), float64(ay), float64(az)), nil
}
