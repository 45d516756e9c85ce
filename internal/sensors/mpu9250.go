// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/balance_controller/internal/config"
	"github.com/relabs-tech/balance_controller/internal/imu"
)

// motionSensor is the part of *mpu9250.MPU9250 the reader needs.
type motionSensor interface {
	GetAccelerationX() (int16, error)
	GetAccelerationY() (int16, error)
	GetAccelerationZ() (int16, error)
	GetRotationX() (int16, error)
	GetRotationY() (int16, error)
	GetRotationZ() (int16, error)
}

// MPU9250 reads raw accelerometer and gyroscope samples. It implements
// imu.Reader.
type MPU9250 struct {
	dev motionSensor
}

var _ imu.Reader = (*MPU9250)(nil)

// NewMPU9250 initializes the balance IMU over SPI using the configured
// device, chip select and ranges.
func NewMPU9250(cfg *config.Config) (*MPU9250, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(cfg.IMUCSPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", cfg.IMUCSPin)
	}

	tr, err := mpu9250.NewSpiTransport(cfg.IMUSPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", cfg.IMUSPIDevice, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := dev.SetAccelRange(cfg.IMUAccelRange); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	log.Printf("IMU: accelerometer range set to %d (±%dg)", cfg.IMUAccelRange, []int{2, 4, 8, 16}[cfg.IMUAccelRange])

	if err := dev.SetGyroRange(cfg.IMUGyroRange); err != nil {
		return nil, fmt.Errorf("IMU: set gyro range: %w", err)
	}
	log.Printf("IMU: gyroscope range set to %d (±%d°/s, %.1f LSB per °/s)",
		cfg.IMUGyroRange, []int{250, 500, 1000, 2000}[cfg.IMUGyroRange], cfg.GyroScale())

	// Factory offset calibration. The balance trim is measured separately
	// with the robot standing upright.
	if err := dev.Calibrate(); err != nil {
		log.Printf("Warning: IMU calibration failed: %v", err)
	} else {
		log.Println("IMU: factory offset calibration complete")
	}

	return &MPU9250{dev: dev}, nil
}

// ReadRaw implements imu.Reader.
func (m *MPU9250) ReadRaw() (imu.Sample, error) {
	ax, err := m.dev.GetAccelerationX()
	if err != nil {
		return imu.Sample{}, fmt.Errorf("IMU accel X: %w", err)
	}
	ay, err := m.dev.GetAccelerationY()
	if err != nil {
		return imu.Sample{}, fmt.Errorf("IMU accel Y: %w", err)
	}
	az, err := m.dev.GetAccelerationZ()
	if err != nil {
		return imu.Sample{}, fmt.Errorf("IMU accel Z: %w", err)
	}

	gx, err := m.dev.GetRotationX()
	if err != nil {
		return imu.Sample{}, fmt.Errorf("IMU gyro X: %w", err)
	}
	gy, err := m.dev.GetRotationY()
	if err != nil {
		return imu.Sample{}, fmt.Errorf("IMU gyro Y: %w", err)
	}
	gz, err := m.dev.GetRotationZ()
	if err != nil {
		return imu.Sample{}, fmt.Errorf("IMU gyro Z: %w", err)
	}

	return imu.Sample{Ax: ax, Ay: ay, Az: az, Gx: gx, Gy: gy, Gz: gz}, nil
}
