package main

import "github.com/ashleysally00/interview-voice-to-text-test/cmd"

func main() {
	cmd.Execute()
}
