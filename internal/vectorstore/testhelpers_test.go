package vectorstore

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/qdrant/go-client/qdrant"
)

// hashEmbedder returns deterministic, non-zero vectors derived from the text.
type hashEmbedder struct {
	dim   int
	err   error
	calls int
}

func (e *hashEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *hashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func (e *hashEmbedder) vector(text string) []float32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum32()
	v := make([]float32, e.dim)
	for i := range v {
		v[i] = float32((seed>>(uint(i)%24))%97+1) / 97
	}
	return v
}

// fakeQdrant records calls and can inject errors per method.
type fakeQdrant struct {
	mu sync.Mutex

	collections map[string]uint64
	points      map[string]map[string]*qdrant.PointStruct

	errs map[string][]error // queued errors per method name

	calls  map[string]int
	closed bool
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{
		collections: map[string]uint64{},
		points:      map[string]map[string]*qdrant.PointStruct{},
		errs:        map[string][]error{},
		calls:       map[string]int{},
	}
}

func (f *fakeQdrant) failNext(method string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method] = append(f.errs[method], errs...)
}

func (f *fakeQdrant) record(method string) error {
	f.calls[method]++
	if q := f.errs[method]; len(q) > 0 {
		f.errs[method] = q[1:]
		return q[0]
	}
	return nil
}

func (f *fakeQdrant) HealthCheck(context.Context) (*qdrant.HealthCheckReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("HealthCheck"); err != nil {
		return nil, err
	}
	return &qdrant.HealthCheckReply{}, nil
}

func (f *fakeQdrant) CollectionExists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CollectionExists"); err != nil {
		return false, err
	}
	_, ok := f.collections[name]
	return ok, nil
}

func (f *fakeQdrant) GetCollectionInfo(_ context.Context, name string) (*qdrant.CollectionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetCollectionInfo"); err != nil {
		return nil, err
	}
	size, ok := f.collections[name]
	if !ok {
		return nil, errors.New("not found")
	}
	return &qdrant.CollectionInfo{
		Config: &qdrant.CollectionConfig{
			Params: &qdrant.CollectionParams{
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{Size: size, Distance: qdrant.Distance_Cosine}),
			},
		},
	}, nil
}

func (f *fakeQdrant) CreateCollection(_ context.Context, req *qdrant.CreateCollection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateCollection"); err != nil {
		return err
	}
	f.collections[req.CollectionName] = req.GetVectorsConfig().GetParams().GetSize()
	f.points[req.CollectionName] = map[string]*qdrant.PointStruct{}
	return nil
}

func (f *fakeQdrant) DeleteCollection(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteCollection"); err != nil {
		return err
	}
	delete(f.collections, name)
	delete(f.points, name)
	return nil
}

func (f *fakeQdrant) Upsert(_ context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Upsert"); err != nil {
		return nil, err
	}
	for _, p := range req.Points {
		f.points[req.CollectionName][p.GetId().GetUuid()] = p
	}
	return &qdrant.UpdateResult{}, nil
}

func (f *fakeQdrant) Delete(_ context.Context, req *qdrant.DeletePoints) (*qdrant.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Delete"); err != nil {
		return nil, err
	}
	for _, id := range req.GetPoints().GetPoints().GetIds() {
		delete(f.points[req.CollectionName], id.GetUuid())
	}
	return &qdrant.UpdateResult{}, nil
}

func (f *fakeQdrant) Count(_ context.Context, req *qdrant.CountPoints) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Count"); err != nil {
		return 0, err
	}
	return uint64(len(f.points[req.CollectionName])), nil
}

func (f *fakeQdrant) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
