//go:build rp2040 && piopulse

package main

// Built with -tags piopulse
const pioPulse = true
