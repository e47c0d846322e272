// Command fpshell is an interactive console for an R307 sensor.
package main

import (
	"flag"
	"log"

	"github.com/abiosoft/ishell"
)

func main() {
	flag.Parse()

	sh := ishell.New()
	sh.Println("R307 sensor console. `help` lists commands.")
	sh.Set(consoleKey, &console{})
	sh.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		sh.AddCmd(cmd)
	}

	if args := flag.Args(); len(args) > 0 {
		if err := sh.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	sh.Run()
}
