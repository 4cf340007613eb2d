package main

import (
	"tfaprotbot/cmd/potdbot/commands"
	"tfaprotbot/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
