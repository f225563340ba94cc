package geometry

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NoGeometryMessage is the report body for drawings without usable geometry.
const NoGeometryMessage = "No geometry found in the drawing."

var printer = message.NewPrinter(language.English)

// FormatNumber renders a measurement with thousands separators and two
// decimals, e.g. 2,500.00.
func FormatNumber(v float64) string {
	return printer.Sprintf("%.2f", v)
}

func plural(n int, word string) string {
	if n == 1 {
		return printer.Sprintf("%d %s", n, word)
	}
	return printer.Sprintf("%d %ss", n, word)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func render(question string, f *Facts) string {
	var b strings.Builder

	b.WriteString("GEOMETRY ANALYSIS\n")
	if strings.TrimSpace(question) != "" {
		b.WriteString("Question: " + strings.TrimSpace(question) + "\n")
	}

	if f.Empty() {
		b.WriteString("\n" + NoGeometryMessage + "\n")
		renderWarnings(&b, f)
		return b.String()
	}

	b.WriteString("\nAREA ANALYSIS\n")
	if len(f.Areas) == 0 {
		b.WriteString("  No closed polygons found.\n")
	}
	for _, a := range f.Areas {
		line := printer.Sprintf("  %s: %s square units (%s)", a.Layer, FormatNumber(a.Area), plural(a.Polygons, "polygon"))
		if a.Boundary {
			line += " [boundary]"
		}
		if a.Coverage != nil {
			line += ", coverage = " + FormatNumber(*a.Coverage) + "% of " + f.BoundaryLayer
		}
		b.WriteString(line + "\n")
	}
	if len(f.Areas) > 0 && f.BoundaryLayer == "" {
		b.WriteString("  No boundary layer found; coverage percentages omitted.\n")
	} else if f.BoundaryLayer != "" && f.BoundaryArea == 0 {
		b.WriteString("  Boundary area is zero; coverage percentages omitted.\n")
	}

	b.WriteString("\nDISTANCE ANALYSIS\n")
	if len(f.Distances) == 0 {
		b.WriteString("  Fewer than two layers; no distances computed.\n")
	}
	for _, d := range f.Distances {
		b.WriteString(printer.Sprintf("  %s <-> %s: minimum distance %s, maximum distance %s, mean distance %s (%s)\n",
			d.LayerA, d.LayerB, FormatNumber(d.Min), FormatNumber(d.Max), FormatNumber(d.Mean), plural(d.Pairs, "pair")))
	}
	for _, c := range f.Containment {
		b.WriteString("  " + c.Layer + " inside " + c.Boundary + ": " + yesNo(c.Inside) + "\n")
	}

	b.WriteString("\nLAYER SUMMARY\n")
	b.WriteString(printer.Sprintf("  Layers: %d\n", f.LayerCount))
	b.WriteString(printer.Sprintf("  Entities: %d\n", f.EntityCount))
	b.WriteString(printer.Sprintf("  Polygons: %d\n", f.PolygonCount))
	b.WriteString(printer.Sprintf("  Lines: %d\n", f.LineCount))
	for _, l := range f.Layers {
		line := printer.Sprintf("  - %s: %s, %s", l.Layer, plural(l.Polygons, "polygon"), plural(l.Lines, "line"))
		if l.Polygons > 0 {
			line += ", area " + FormatNumber(l.Area)
		}
		if l.Lines > 0 {
			line += ", length " + FormatNumber(l.Length)
		}
		b.WriteString(line + "\n")
	}

	renderWarnings(&b, f)
	return b.String()
}

func renderWarnings(b *strings.Builder, f *Facts) {
	if len(f.Warnings) == 0 {
		return
	}
	b.WriteString("\nPARSE WARNINGS\n")
	for _, w := range f.Warnings {
		b.WriteString("  - " + w.String() + "\n")
	}
}
