package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
)

// sendCmd writes one command to the server's command socket, e.g.
// `admin send -addr 127.0.0.1:12345 itempods:Steel`.
func sendCmd(args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:12345", "command socket address")
	timeout := fs.Duration("timeout", 5*time.Second, "dial and write timeout")
	_ = fs.Parse(args)

	msg := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(msg) == "" {
		fmt.Fprintln(os.Stderr, "missing command (e.g. raid, weather:Rain, message:Hello)")
		os.Exit(2)
	}
	n, err := sendCommand(*addr, msg, *timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "send:", err)
		os.Exit(1)
	}
	fmt.Printf("sent %d bytes to %s\n", n, *addr)
}

// sendCommand is fire-and-forget: the server never replies.
func sendCommand(addr, msg string, timeout time.Duration) (int, error) {
	c, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return 0, err
	}
	defer c.Close()
	_ = c.SetWriteDeadline(time.Now().Add(timeout))
	return c.Write([]byte(msg))
}
