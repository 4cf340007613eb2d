package main

import (
	"tfaprotbot/cmd/tfaprotbot/commands"
	"tfaprotbot/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
