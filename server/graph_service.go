package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"connectrpc.com/connect"

	"github.com/chazu/stackviz/pkg/backend"
	"github.com/chazu/stackviz/pkg/graph"
	"github.com/chazu/stackviz/pkg/pngimage"
	"github.com/chazu/stackviz/vm"
)

// GraphService renders programs to PNG, over connect and plain HTTP.
type GraphService struct {
	pool     *EvalPool
	backend  backend.Backend
	cache    *ImageCache
	defaults graph.Defaults
	now      func() time.Time
}

// NewGraphService creates a GraphService querying b.
func NewGraphService(pool *EvalPool, b backend.Backend, cache *ImageCache, defaults graph.Defaults) *GraphService {
	return &GraphService{pool: pool, backend: b, cache: cache, defaults: defaults, now: time.Now}
}

// Render draws a graph and caches it. The response carries the PNG bytes,
// its metadata, and an ID that /api/v1/images/{id} serves.
func (s *GraphService) Render(
	ctx context.Context,
	req *connect.Request[RenderRequest],
) (*connect.Response[RenderResponse], error) {
	m := req.Msg
	if m.Program == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("program is required"))
	}
	p := graph.Params{Start: m.Start, End: m.End, Step: m.Step}
	if m.Width > 0 {
		p.Width = strconv.Itoa(m.Width)
	}
	if m.Height > 0 {
		p.Height = strconv.Itoa(m.Height)
	}
	gr, err := graph.ParseRequest(m.Program, p, s.defaults, s.now())
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	img, err := s.render(ctx, gr, false)
	if err != nil {
		return nil, graphError(err)
	}
	data, err := img.Bytes()
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&RenderResponse{
		ID:       s.cache.Put(data, m.Program),
		PNG:      data,
		Metadata: img.Metadata,
	}), nil
}

// render runs the renderer on a pool worker. With placeholder set, a
// failure still returns an error image alongside the error.
func (s *GraphService) render(ctx context.Context, req graph.Request, placeholder bool) (*pngimage.Image, error) {
	var img *pngimage.Image
	_, err := s.pool.Do(ctx, func(in *vm.Interpreter) (interface{}, error) {
		r := graph.Renderer{Interpreter: in, Backend: s.backend}
		var err error
		if placeholder {
			img, err = r.RenderOrError(ctx, req)
		} else {
			img, err = r.Render(ctx, req)
		}
		return nil, err
	})
	if err != nil && img == nil && placeholder {
		img = pngimage.ErrorImage(err.Error(), req.Width, req.Height)
	}
	return img, err
}

// ServeGraph handles GET /api/v1/graph?q=&s=&e=&step=&w=&h=. Failures are
// drawn as an error image with a 400 (or 503 for backend failures) status
// so that <img> tags still show something.
func (s *GraphService) ServeGraph(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := graph.Params{
		Start:  q.Get("s"),
		End:    q.Get("e"),
		Step:   q.Get("step"),
		Width:  q.Get("w"),
		Height: q.Get("h"),
	}
	program := q.Get("q")

	req, err := graph.ParseRequest(program, params, s.defaults, s.now())
	if err == nil && program == "" {
		err = errors.New("missing q parameter")
	}
	if err != nil {
		writePNG(w, http.StatusBadRequest, pngimage.ErrorImage(err.Error(), s.defaults.Width, s.defaults.Height))
		return
	}

	img, err := s.render(r.Context(), req, true)
	status := http.StatusOK
	if err != nil {
		log.Infof("graph %q failed: %v", program, err)
		status = http.StatusBadRequest
		var be *graph.BackendError
		if errors.As(err, &be) {
			status = http.StatusServiceUnavailable
		}
	}
	writePNG(w, status, img)
}

// ServeImage handles GET /api/v1/images/{id}.
func (s *GraphService) ServeImage(w http.ResponseWriter, r *http.Request) {
	data, ok := s.cache.Get(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func writePNG(w http.ResponseWriter, status int, img *pngimage.Image) {
	data, err := img.Bytes()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)
	w.Write(data)
}

// graphError maps a rendering failure onto a connect error code.
func graphError(err error) *connect.Error {
	var be *graph.BackendError
	switch {
	case errors.As(err, &be):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, graph.ErrNotPlottable):
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	return evalError(err)
}
