package display

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// OpenSerial opens the serial link to the pixel driver board, 8N1.
func OpenSerial(portName string, baudRate int) (io.WriteCloser, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open port %s: %w", portName, err)
	}
	return port, nil
}

// ListSerialPorts returns the serial ports visible to the host.
func ListSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
