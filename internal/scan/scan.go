// Copyright (c) 2026 Bradley Kovaluk <bkovaluk@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package scan probes a host for open TCP ports among the most common
// service ports.
package scan

import (
	"context"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/awsadm/awsadm/internal/log"
)

// DialTimeout bounds each connection attempt.
const DialTimeout = time.Second

// serviceNotes describes the service conventionally behind each scanned port.
var serviceNotes = map[int]string{
	21:   "FTP (File Transfer Protocol) - Used for file transfers",
	22:   "SSH (Secure Shell) - Used for secure remote access",
	23:   "Telnet - Used for remote terminal access",
	25:   "SMTP (Simple Mail Transfer Protocol) - Used for email transmission",
	53:   "DNS (Domain Name System) - Used for domain name resolution",
	80:   "HTTP (Hypertext Transfer Protocol) - Used for unencrypted web traffic",
	110:  "POP3 (Post Office Protocol version 3) - Used for email retrieval",
	143:  "IMAP (Internet Message Access Protocol) - Used for email retrieval",
	443:  "HTTPS (HTTP Secure) - Used for encrypted web traffic",
	3306: "MySQL - Used for MySQL database access",
	3389: "RDP (Remote Desktop Protocol) - Used for remote desktop connections (Windows)",
	5900: "VNC (Virtual Network Computing) - Used for remote desktop access",
	8000: "HTTP Alternate - Commonly used as a secondary HTTP port",
	8080: "HTTP Alternate - Commonly used as a secondary HTTP port",
	8443: "HTTPS Alternate - Commonly used as a secondary HTTPS port",
}

// TopPorts returns the scanned port numbers in ascending order.
func TopPorts() []int {
	ports := make([]int, 0, len(serviceNotes))
	for port := range serviceNotes {
		ports = append(ports, port)
	}
	sort.Ints(ports)
	return ports
}

// ServiceNote describes the service conventionally found on port.
func ServiceNote(port int) string {
	if note, ok := serviceNotes[port]; ok {
		return note
	}
	return "No known service associated with this port"
}

// Dialer abstracts net connection attempts for testing.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ScanTopPorts attempts a TCP connection to each common port on target and
// returns the ports that accepted. Connection failures mean closed, not
// error.
func ScanTopPorts(ctx context.Context, dialer Dialer, target string) ([]int, error) {
	if dialer == nil {
		dialer = &net.Dialer{Timeout: DialTimeout}
	}

	var open []int
	for _, port := range TopPorts() {
		if err := ctx.Err(); err != nil {
			return open, err
		}
		address := net.JoinHostPort(target, strconv.Itoa(port))
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err != nil {
			log.Tracef("port %d closed: %v", port, err)
			continue
		}
		conn.Close()
		log.Infof("port %d is open", port)
		open = append(open, port)
	}
	return open, nil
}
