package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/abiosoft/ishell"
	"go.bug.st/serial"

	"github.com/optiscan/r307.go/pkg/capture"
	"github.com/optiscan/r307.go/pkg/device"
	"github.com/optiscan/r307.go/pkg/proto"
	"github.com/optiscan/r307.go/pkg/raster"
	"github.com/optiscan/r307.go/pkg/transport"
	"github.com/optiscan/r307.go/pkg/transport/serialport"
)

const (
	consoleKey   = "$console"
	closedPrompt = "[closed] > "
)

// console is the shell's state: at most one open port at a time.
type console struct {
	port serial.Port
	name string
	dev  *device.Device
}

func consoleFrom(c *ishell.Context) *console {
	return c.Get(consoleKey).(*console)
}

// mustBeOpen wraps command funcs that need an open port.
func mustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if consoleFrom(c).dev == nil {
			c.Err(fmt.Errorf("no port open; use `open PORT [BAUD]`"))
			return
		}
		fn(c)
	}
}

var commands = []*ishell.Cmd{
	&portsCmd,
	&openCmd,
	&closeCmd,
	&genCmd,
	&captureCmd,
	&baudCmd,
	&regCmd,
}

// portsCmd lists serial ports.
var portsCmd = ishell.Cmd{
	Name:    "ports",
	Aliases: []string{"l"},
	Help:    "",
	Func: func(c *ishell.Context) {
		ports, err := serialport.List()
		if err != nil {
			c.Err(err)
			return
		}
		if len(ports) == 0 {
			c.Println("no serial ports found")
			return
		}
		for _, p := range ports {
			c.Println(p)
		}
	},
}

// openCmd opens a serial port and binds a sensor to it.
var openCmd = ishell.Cmd{
	Name: "open",
	Help: "PORT [BAUD]",
	Func: func(c *ishell.Context) {
		if len(c.Args) < 1 {
			c.Err(fmt.Errorf("PORT required"))
			return
		}
		baud := 57600
		if len(c.Args) > 1 {
			val, err := strconv.Atoi(c.Args[1])
			if err != nil {
				c.Err(fmt.Errorf("invalid BAUD: %v", err))
				return
			}
			baud = val
		}
		con := consoleFrom(c)
		if con.port != nil {
			con.port.Close()
			con.port, con.dev = nil, nil
		}
		port, err := serialport.Open(c.Args[0], baud)
		if err != nil {
			c.Err(err)
			return
		}
		con.port, con.name = port, c.Args[0]
		con.dev = device.New(transport.NewConn(port))
		c.SetPrompt(fmt.Sprintf("%s@%d > ", con.name, baud))
	},
}

// closeCmd closes the current port.
var closeCmd = ishell.Cmd{
	Name: "close",
	Help: "",
	Func: mustBeOpen(func(c *ishell.Context) {
		con := consoleFrom(c)
		con.port.Close()
		con.port, con.dev = nil, nil
		c.SetPrompt(closedPrompt)
	}),
}

// genCmd runs a single capture attempt.
var genCmd = ishell.Cmd{
	Name: "gen",
	Help: "",
	Func: mustBeOpen(func(c *ishell.Context) {
		code, err := consoleFrom(c).dev.GenImage()
		if err != nil {
			c.Err(err)
			return
		}
		switch code {
		case proto.AckOK:
			c.Println("image captured")
		case proto.AckNoFinger:
			c.Println("no finger detected")
		case proto.AckCollectFail:
			c.Println("capture failed, adjust finger placement")
		default:
			c.Printf("confirmation code %#02x\n", code)
		}
	}),
}

// captureCmd waits for a finger and saves the image as PNG.
var captureCmd = ishell.Cmd{
	Name: "capture",
	Help: "FILE",
	Func: mustBeOpen(func(c *ishell.Context) {
		if len(c.Args) < 1 {
			c.Err(fmt.Errorf("FILE required"))
			return
		}
		c.Println("place finger on the sensor...")
		img, err := capture.NewSession(consoleFrom(c).dev).Capture(context.Background())
		if err != nil {
			c.Err(err)
			return
		}
		f, err := os.Create(c.Args[0])
		if err != nil {
			c.Err(err)
			return
		}
		defer f.Close()
		if err := raster.EncodePNG(f, img.Pixels, img.Width, img.Height); err != nil {
			c.Err(err)
			return
		}
		c.Printf("saved %s\n", c.Args[0])
	}),
}

// baudCmd writes the baud rate register.
var baudCmd = ishell.Cmd{
	Name: "baud",
	Help: "RATE",
	Func: mustBeOpen(func(c *ishell.Context) {
		if len(c.Args) < 1 {
			c.Err(fmt.Errorf("RATE required, one of %v", device.BaudRates()))
			return
		}
		rate, err := strconv.Atoi(c.Args[0])
		if err != nil {
			c.Err(fmt.Errorf("invalid RATE: %v", err))
			return
		}
		n, err := consoleFrom(c).dev.SetBaudRate(rate)
		if err != nil {
			c.Err(err)
			return
		}
		c.Printf("divisor %d written; power-cycle the sensor to apply\n", n)
	}),
}

// regCmd writes an arbitrary system register.
var regCmd = ishell.Cmd{
	Name: "reg",
	Help: "REG VALUE",
	Func: mustBeOpen(func(c *ishell.Context) {
		if len(c.Args) < 2 {
			c.Err(fmt.Errorf("REG and VALUE required"))
			return
		}
		reg, err := strconv.ParseUint(c.Args[0], 0, 8)
		if err != nil {
			c.Err(fmt.Errorf("invalid REG: %v", err))
			return
		}
		val, err := strconv.ParseUint(c.Args[1], 0, 8)
		if err != nil {
			c.Err(fmt.Errorf("invalid VALUE: %v", err))
			return
		}
		if err := consoleFrom(c).dev.WriteReg(byte(reg), byte(val)); err != nil {
			c.Err(err)
			return
		}
		c.Println("OK")
	}),
}
