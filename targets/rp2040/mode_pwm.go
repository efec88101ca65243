//go:build rp2040 && !piopulse

package main

const pioPulse = false
