// Command exrinfo prints the header of a scanline OpenEXR file.
package main

import (
	"context"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/robert-malhotra/go-exr/exr"
)

func main() {
	var (
		asJSON    bool
		showAttrs bool
	)

	app := &cli.Command{
		Name:      "exrinfo",
		Usage:     "Print the header of a scanline OpenEXR file",
		ArgsUsage: "<file.exr>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "emit machine-readable JSON", Destination: &asJSON},
			&cli.BoolFlag{Name: "attrs", Usage: "list non-standard attributes", Destination: &showAttrs},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return cli.Exit("usage: exrinfo [--json] [--attrs] <file.exr>", 1)
			}
			path := cmd.Args().First()

			f, err := exr.Open(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("exrinfo: %s: %v", path, err), 1)
			}
			defer f.Close()

			if asJSON {
				return printJSON(f.Header(), showAttrs)
			}
			printText(path, f.Header(), showAttrs)
			return nil
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type channelInfo struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	PLinear   bool   `json:"pLinear,omitempty"`
	XSampling int32  `json:"xSampling"`
	YSampling int32  `json:"ySampling"`
}

type attrInfo struct {
	Type string `json:"type"`
	Size int    `json:"size"`
}

type headerInfo struct {
	DataWindow         [4]int32            `json:"dataWindow"`
	DisplayWindow      [4]int32            `json:"displayWindow"`
	Width              int                 `json:"width"`
	Height             int                 `json:"height"`
	Compression        string              `json:"compression"`
	LineOrder          string              `json:"lineOrder"`
	PixelAspectRatio   float32             `json:"pixelAspectRatio"`
	ScreenWindowCenter [2]float32          `json:"screenWindowCenter"`
	ScreenWindowWidth  float32             `json:"screenWindowWidth"`
	Channels           []channelInfo       `json:"channels"`
	Attributes         map[string]attrInfo `json:"attributes,omitempty"`
}

func printJSON(h *exr.Header, showAttrs bool) error {
	info := headerInfo{
		DataWindow:         [4]int32{h.DataWindow.MinX, h.DataWindow.MinY, h.DataWindow.MaxX, h.DataWindow.MaxY},
		DisplayWindow:      [4]int32{h.DisplayWindow.MinX, h.DisplayWindow.MinY, h.DisplayWindow.MaxX, h.DisplayWindow.MaxY},
		Width:              h.DataWindow.Width(),
		Height:             h.DataWindow.Height(),
		Compression:        h.Compression.String(),
		LineOrder:          h.LineOrder.String(),
		PixelAspectRatio:   h.PixelAspectRatio,
		ScreenWindowCenter: [2]float32{h.ScreenWindowCenter.X, h.ScreenWindowCenter.Y},
		ScreenWindowWidth:  h.ScreenWindowWidth,
	}
	for i := 0; i < h.Channels.Len(); i++ {
		ch := h.Channels.At(i)
		info.Channels = append(info.Channels, channelInfo{
			Name:      ch.Name,
			Type:      ch.Type.String(),
			PLinear:   ch.PLinear,
			XSampling: ch.XSampling,
			YSampling: ch.YSampling,
		})
	}
	if showAttrs {
		info.Attributes = make(map[string]attrInfo)
		for _, name := range h.AttributeNames() {
			a, _ := h.Attribute(name)
			info.Attributes[name] = attrInfo{Type: a.TypeName, Size: len(a.Value)}
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

func printText(path string, h *exr.Header, showAttrs bool) {
	fmt.Printf("%s: %dx%d, %s compression, %s\n",
		path, h.DataWindow.Width(), h.DataWindow.Height(), h.Compression, h.LineOrder)
	fmt.Printf("  data window:    %s\n", h.DataWindow)
	fmt.Printf("  display window: %s\n", h.DisplayWindow)
	fmt.Printf("  pixel aspect:   %g, screen window %g at (%g, %g)\n",
		h.PixelAspectRatio, h.ScreenWindowWidth, h.ScreenWindowCenter.X, h.ScreenWindowCenter.Y)

	fmt.Printf("  channels (%d):\n", h.Channels.Len())
	for i := 0; i < h.Channels.Len(); i++ {
		ch := h.Channels.At(i)
		extra := ""
		if ch.XSampling != 1 || ch.YSampling != 1 {
			extra = fmt.Sprintf(", sampling %dx%d", ch.XSampling, ch.YSampling)
		}
		if ch.PLinear {
			extra += ", pLinear"
		}
		fmt.Printf("    %-12s %s%s\n", ch.Name, ch.Type, extra)
	}

	if showAttrs {
		names := h.AttributeNames()
		if len(names) == 0 {
			fmt.Println("  no non-standard attributes")
			return
		}
		fmt.Printf("  attributes (%d):\n", len(names))
		for _, name := range names {
			a, _ := h.Attribute(name)
			fmt.Printf("    %-20s %s (%d bytes)\n", name, a.TypeName, len(a.Value))
		}
	}
}
