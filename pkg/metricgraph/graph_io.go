package metricgraph

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/dsnet/compress/bzip2"
	"github.com/roadstats/trafficfield/pkg/geo"
	"github.com/twpayne/go-polyline"
)

// WriteGraph persists the graph as a bzip2-compressed flat text file: a
// header line with counts, one line per vertex, one line per edge with the
// geometry polyline-encoded.
func (g *Graph) WriteGraph(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}
	defer bz.Close()

	w := bufio.NewWriter(bz)
	defer w.Flush()

	fmt.Fprintf(w, "%d %d\n", len(g.vertices), len(g.edges))

	for _, v := range g.vertices {
		latF := strconv.FormatFloat(v.coord.Lat, 'f', -1, 64)
		lonF := strconv.FormatFloat(v.coord.Lon, 'f', -1, 64)
		fmt.Fprintf(w, "%d %s %s\n", v.id, latF, lonF)
	}

	for _, e := range g.edges {
		lengthF := strconv.FormatFloat(e.length, 'f', -1, 64)
		coords := make([][]float64, len(e.geometry))
		for i, c := range e.geometry {
			coords[i] = []float64{c.Lat, c.Lon}
		}
		encoded := polyline.EncodeCoords(coords)
		category := e.category
		if category == "" {
			category = "-"
		}
		fmt.Fprintf(w, "%d %d %d %s %d %s\n", e.id, e.tail, e.head, lengthF, e.wayID, category)
		fmt.Fprintf(w, "%s\n", encoded)
	}

	return nil
}

// ReadGraph reads a graph written by WriteGraph.
func ReadGraph(filename string) (*Graph, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bz, err := bzip2.NewReader(f, &bzip2.ReaderConfig{})
	if err != nil {
		return nil, err
	}
	defer bz.Close()

	sc := bufio.NewScanner(bz)
	sc.Buffer(make([]byte, 1024*1024), 16*1024*1024)

	var numVertices, numEdges int
	if !sc.Scan() {
		return nil, fmt.Errorf("read graph %s: empty file", filename)
	}
	if _, err := fmt.Sscanf(sc.Text(), "%d %d", &numVertices, &numEdges); err != nil {
		return nil, fmt.Errorf("read graph %s: bad header: %w", filename, err)
	}

	vertices := make([]Vertex, numVertices)
	for i := 0; i < numVertices; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("read graph %s: truncated vertex section", filename)
		}
		var id int
		var lat, lon float64
		if _, err := fmt.Sscanf(sc.Text(), "%d %f %f", &id, &lat, &lon); err != nil {
			return nil, fmt.Errorf("read graph %s: bad vertex line: %w", filename, err)
		}
		vertices[i] = Vertex{id: id, coord: geo.NewCoordinate(lat, lon)}
	}

	edges := make([]Edge, numEdges)
	for i := 0; i < numEdges; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("read graph %s: truncated edge section", filename)
		}
		var id, tail, head int
		var length float64
		var wayID int64
		var category string
		if _, err := fmt.Sscanf(sc.Text(), "%d %d %d %f %d %s",
			&id, &tail, &head, &length, &wayID, &category); err != nil {
			return nil, fmt.Errorf("read graph %s: bad edge line: %w", filename, err)
		}
		if category == "-" {
			category = ""
		}
		if !sc.Scan() {
			return nil, fmt.Errorf("read graph %s: missing geometry for edge %d", filename, id)
		}
		coords, _, err := polyline.DecodeCoords([]byte(sc.Text()))
		if err != nil {
			return nil, fmt.Errorf("read graph %s: bad geometry for edge %d: %w", filename, id, err)
		}
		geom := make([]geo.Coordinate, len(coords))
		for j, c := range coords {
			geom[j] = geo.NewCoordinate(c[0], c[1])
		}
		edges[i] = Edge{
			id:       id,
			tail:     tail,
			head:     head,
			length:   length,
			wayID:    wayID,
			category: category,
			geometry: geom,
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return newGraph(vertices, edges, bboxOfVertices(vertices)), nil
}
