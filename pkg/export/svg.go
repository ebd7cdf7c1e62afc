package export

import (
	"fmt"
	"io"
	"os"

	svg "github.com/ajstarks/svgo"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/menuadmin/pkg/model"
	"github.com/vanderheijden86/menuadmin/pkg/tree"
)

// Layout of the SVG tree diagram, in pixels.
const (
	svgMargin    = 20
	svgRowHeight = 36
	svgBoxHeight = 26
	svgIndent    = 32
	svgCharWidth = 8
	svgBoxPad    = 12
	svgMinWidth  = 200
)

type svgRow struct {
	x, y, width int
	label       string
	parent      int // row index of the parent, -1 for roots
}

// layoutRows places every node of the forest in pre-order, one per row.
func layoutRows(forest []model.MenuNode) ([]svgRow, int, int) {
	flat := tree.Flatten(forest)
	rows := make([]svgRow, 0, len(flat))
	var lastAtDepth []int

	width := svgMinWidth
	for i, opt := range flat {
		label := fmt.Sprintf("%s (%s)", opt.Name, opt.ID)
		row := svgRow{
			x:      svgMargin + opt.Depth*svgIndent,
			y:      svgMargin + i*svgRowHeight,
			width:  runewidth.StringWidth(label)*svgCharWidth + 2*svgBoxPad,
			label:  label,
			parent: -1,
		}
		lastAtDepth = append(lastAtDepth[:opt.Depth], i)
		if opt.Depth > 0 {
			row.parent = lastAtDepth[opt.Depth-1]
		}
		if right := row.x + row.width + svgMargin; right > width {
			width = right
		}
		rows = append(rows, row)
	}

	height := 2*svgMargin + len(rows)*svgRowHeight
	return rows, width, height
}

// GenerateSVG writes an indented tree diagram of the forest to w.
func GenerateSVG(w io.Writer, forest []model.MenuNode) error {
	rows, width, height := layoutRows(forest)
	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Title("Menu hierarchy")
	canvas.Rect(0, 0, width, height, "fill:#ffffff")

	if len(rows) == 0 {
		canvas.Text(svgMargin, svgMargin+svgBoxHeight/2, "No menus", "font-family:sans-serif;font-size:14px;fill:#888888")
		canvas.End()
		return nil
	}

	// Connectors first so boxes paint over them.
	canvas.Gstyle("stroke:#9aa0a6;stroke-width:1.5;fill:none")
	for _, row := range rows {
		if row.parent < 0 {
			continue
		}
		p := rows[row.parent]
		px := p.x + svgIndent/2
		midY := row.y + svgBoxHeight/2
		canvas.Polyline(
			[]int{px, px, row.x},
			[]int{p.y + svgBoxHeight, midY, midY},
		)
	}
	canvas.Gend()

	for _, row := range rows {
		fill := "#e8f0fe"
		if row.parent < 0 {
			fill = "#d2e3fc"
		}
		canvas.Roundrect(row.x, row.y, row.width, svgBoxHeight, 5, 5,
			fmt.Sprintf("fill:%s;stroke:#1a73e8;stroke-width:1", fill))
		canvas.Text(row.x+svgBoxPad, row.y+svgBoxHeight/2+5, row.label,
			"font-family:monospace;font-size:13px;fill:#202124")
	}

	canvas.End()
	return nil
}

// SaveSVGToFile writes the SVG diagram to a file
func SaveSVGToFile(forest []model.MenuNode, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filename, err)
	}
	if err := GenerateSVG(f, forest); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
