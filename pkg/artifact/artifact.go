// Package artifact serializes encoded program graphs. The npz format is the
// archive numpy.load reads: node_rep (N,V) and AST, CFG, DFG (E,2) float64
// arrays, an empty edge set being a 0-length vector. The msgpack format keeps
// the whole artifact, node table included.
package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/sbinet/npyio/npz"
	"github.com/viant/afs"
	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"

	"github.com/l3aro/go-program-graph/pkg/encode"
)

// Format is an artifact encoding.
type Format string

const (
	FormatNPZ     Format = "npz"
	FormatMsgpack Format = "msgpack"
)

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	return f == FormatNPZ || f == FormatMsgpack
}

// Ext returns the file extension of f, dot included.
func (f Format) Ext() string {
	return "." + string(f)
}

// FormatFromPath picks a format from a file extension, defaulting to npz.
func FormatFromPath(p string) Format {
	if strings.EqualFold(path.Ext(p), FormatMsgpack.Ext()) {
		return FormatMsgpack
	}
	return FormatNPZ
}

// Array names inside an npz archive.
const (
	arrayNodeRep = "node_rep"
	arrayAST     = string(encode.EdgeAST)
	arrayCFG     = string(encode.EdgeCFG)
	arrayDFG     = string(encode.EdgeDFG)
)

// Encode writes a in the given format.
func Encode(w io.Writer, a *encode.Artifact, format Format) error {
	switch format {
	case FormatNPZ:
		return encodeNPZ(w, a)
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(a)
	default:
		return fmt.Errorf("unknown artifact format %q", format)
	}
}

// Decode reads an artifact. npz archives carry no node table, so Nodes is
// nil and Skipped is zero for them.
func Decode(data []byte, format Format) (*encode.Artifact, error) {
	switch format {
	case FormatNPZ:
		return decodeNPZ(data)
	case FormatMsgpack:
		var a encode.Artifact
		if err := msgpack.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decoding msgpack artifact: %w", err)
		}
		return &a, nil
	default:
		return nil, fmt.Errorf("unknown artifact format %q", format)
	}
}

func encodeNPZ(w io.Writer, a *encode.Artifact) error {
	zw := npz.NewWriter(w)
	if err := zw.Write(arrayNodeRep+".npy", dense(a.Features.Rows, a.Features.Cols, a.Features.Data)); err != nil {
		return fmt.Errorf("writing %s: %w", arrayNodeRep, err)
	}
	for _, kind := range []encode.EdgeKind{encode.EdgeAST, encode.EdgeCFG, encode.EdgeDFG} {
		edges := a.Edges(kind)
		data := make([]int64, 0, 2*len(edges))
		for _, e := range edges {
			data = append(data, e[0], e[1])
		}
		if err := zw.Write(string(kind)+".npy", dense(len(edges), 2, data)); err != nil {
			return fmt.Errorf("writing %s: %w", kind, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing npz archive: %w", err)
	}
	return nil
}

// dense lays data out as a (rows, cols) float64 matrix. An empty array is
// written as a 0-length vector, the shape numpy gives an empty list.
func dense(rows, cols int, data []int64) any {
	if rows == 0 || cols == 0 {
		return []float64{}
	}
	vals := make([]float64, len(data))
	for i, v := range data {
		vals[i] = float64(v)
	}
	return mat.NewDense(rows, cols, vals)
}

func decodeNPZ(data []byte) (*encode.Artifact, error) {
	arrays, err := ReadNPZ(data)
	if err != nil {
		return nil, err
	}

	rep, ok := arrays[arrayNodeRep]
	if !ok || len(rep.Shape) != 2 {
		return nil, fmt.Errorf("npz archive has no 2-d %s array", arrayNodeRep)
	}
	a := &encode.Artifact{
		Features: encode.Matrix{Rows: rep.Shape[0], Cols: rep.Shape[1], Data: rep.Data},
	}
	for _, kind := range []struct {
		name string
		dst  *[]encode.Edge
	}{{arrayAST, &a.AST}, {arrayCFG, &a.CFG}, {arrayDFG, &a.DFG}} {
		arr, ok := arrays[kind.name]
		if !ok {
			return nil, fmt.Errorf("npz archive has no %s array", kind.name)
		}
		if len(arr.Data) == 0 {
			*kind.dst = []encode.Edge{}
			continue
		}
		if len(arr.Shape) != 2 || arr.Shape[1] != 2 {
			return nil, fmt.Errorf("%s array has shape %v, want (E, 2)", kind.name, arr.Shape)
		}
		edges := make([]encode.Edge, arr.Shape[0])
		for i := range edges {
			edges[i] = encode.Edge{arr.Data[2*i], arr.Data[2*i+1]}
		}
		*kind.dst = edges
	}
	return a, nil
}

// Array is one member of an npz archive, converted to int64.
type Array struct {
	Shape []int
	Data  []int64
}

// ReadNPZ returns every array of an npz archive keyed by member name without
// the .npy suffix. Members must be empty or 2-d.
func ReadNPZ(data []byte) (map[string]Array, error) {
	zr, err := npz.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening npz archive: %w", err)
	}
	keys := zr.Keys()
	arrays := make(map[string]Array, len(keys))
	for _, key := range keys {
		hdr := zr.Header(key)
		if hdr == nil {
			return nil, fmt.Errorf("%s: missing npy header", key)
		}
		shape := hdr.Descr.Shape
		arr := Array{Shape: shape}
		switch {
		case size(shape) == 0:
		case len(shape) == 2:
			var m mat.Dense
			if err := zr.Read(key, &m); err != nil {
				return nil, fmt.Errorf("reading %s: %w", key, err)
			}
			arr.Data = make([]int64, 0, shape[0]*shape[1])
			for _, v := range m.RawMatrix().Data {
				arr.Data = append(arr.Data, int64(v))
			}
		default:
			return nil, fmt.Errorf("%s has shape %v, want a 2-d array", key, shape)
		}
		arrays[strings.TrimSuffix(key, ".npy")] = arr
	}
	return arrays, nil
}

func size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Store saves and loads artifacts by URL. Plain paths are local files; any
// scheme afs supports works as well.
type Store struct {
	fs     afs.Service
	format Format
}

// NewStore creates a Store writing the given format.
func NewStore(format Format) *Store {
	return &Store{fs: afs.New(), format: format}
}

// Format returns the format the store writes.
func (s *Store) Format() Format {
	return s.format
}

// Save encodes a and uploads it to URL.
func (s *Store) Save(ctx context.Context, URL string, a *encode.Artifact) error {
	var buf bytes.Buffer
	if err := Encode(&buf, a, s.format); err != nil {
		return err
	}
	if err := s.fs.Upload(ctx, URL, 0o644, &buf); err != nil {
		return fmt.Errorf("writing artifact %s: %w", URL, err)
	}
	return nil
}

// Load downloads and decodes the artifact at URL, picking the format from its extension.
func (s *Store) Load(ctx context.Context, URL string) (*encode.Artifact, error) {
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("reading artifact %s: %w", URL, err)
	}
	return Decode(data, FormatFromPath(URL))
}

// Exists reports whether an artifact is stored at URL.
func (s *Store) Exists(ctx context.Context, URL string) (bool, error) {
	return s.fs.Exists(ctx, URL)
}

// OutputPath names the artifact of source inside dir: the source's base name
// with its extension replaced by the format's.
func OutputPath(dir, source string, format Format) string {
	base := path.Base(strings.ReplaceAll(source, "\\", "/"))
	name := strings.TrimSuffix(base, path.Ext(base)) + format.Ext()
	if dir == "" {
		return name
	}
	return strings.TrimSuffix(dir, "/") + "/" + name
}
