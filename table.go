package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/mrdg/segenv/audio"
)

// propsTable lists every property of a device with its current value.
func propsTable(dev audio.Device) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"property", "value"})
	for _, key := range dev.Keys() {
		v, err := dev.Get(key)
		if err != nil {
			continue
		}
		tw.AppendRow(table.Row{key, formatValue(v)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func formatValue(v any) string {
	switch v := v.(type) {
	case float64:
		return fmt.Sprintf("%.4g", v)
	case *audio.SoundMapping:
		n := 0
		for _, snd := range v {
			if snd != nil {
				n++
			}
		}
		return fmt.Sprintf("%d sounds", n)
	case map[string]*audio.Clip:
		return fmt.Sprintf("%d clips", len(v))
	default:
		return fmt.Sprint(v)
	}
}
