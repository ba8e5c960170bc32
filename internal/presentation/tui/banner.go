package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	" __        __          __ _           _",
	" \\ \\      / /_ _ _   _/ _(_)_ __   __| | ___ _ __",
	"  \\ \\ /\\ / / _` | | | | |_| | '_ \\ / _` |/ _ \\ '__|",
	"   \\ V  V / (_| | |_| |  _| | | | | (_| |  __/ |",
	"    \\_/\\_/ \\__,_|\\__, |_| |_|_| |_|\\__,_|\\___|_|",
	"                 |___/",
}

// Teal to green, one shade per line.
var bannerColors = []string{"#22d3ee", "#2dd4bf", "#34d399", "#4ade80", "#a3e635", "#facc15"}

// PrintBanner writes the ASCII banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line).Foreground(p.Color(bannerColors[i])))
	}
	if version != "" {
		fmt.Fprintln(w, termenv.String("   "+version).Faint())
	}
	fmt.Fprintln(w)
}
