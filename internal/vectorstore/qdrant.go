package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fyrsmithlabs/litweaver/internal/logging"
)

// Tracer for OpenTelemetry instrumentation.
var tracer = otel.Tracer("litweaver.vectorstore.qdrant")

// QdrantConfig holds configuration for Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	// Default: "localhost"
	Host string

	// Port is the Qdrant gRPC port (NOT HTTP REST port).
	// Default: 6334 (gRPC), not 6333 (HTTP)
	Port int

	// APIKey authenticates against Qdrant Cloud or secured servers.
	APIKey string

	// VectorSize is the dimensionality of embeddings used when creating
	// collections. MUST match Embedder output dimensions.
	VectorSize uint64

	// Distance is the similarity metric for new collections.
	// Default: Cosine
	Distance qdrant.Distance

	// UseTLS enables TLS encryption for gRPC connection.
	UseTLS bool

	// MaxRetries is the maximum number of retry attempts for transient failures.
	// Default: 3
	MaxRetries int

	// RetryBackoff is the initial backoff duration for retries.
	// Doubles on each retry (exponential backoff).
	// Default: 1 second
	RetryBackoff time.Duration

	// MaxMessageSize is the maximum gRPC message size in bytes.
	// Default: 50MB
	MaxMessageSize int

	// CircuitBreakerThreshold is the number of failures before opening circuit.
	// Default: 5
	CircuitBreakerThreshold int
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	if c.VectorSize == 0 {
		return fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}
	return nil
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
	if c.CircuitBreakerThreshold == 0 {
		c.CircuitBreakerThreshold = 5
	}
	if c.Distance == qdrant.Distance_UnknownDistance {
		c.Distance = qdrant.Distance_Cosine
	}
}

// IsTransientError checks if an error is transient (should retry).
// Returns true for network timeouts, temporary unavailability.
// Returns false for invalid config, not found, permission denied.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	st, ok := status.FromError(err)
	if !ok {
		return false
	}

	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// qdrantAPI is the subset of *qdrant.Client the store uses.
type qdrantAPI interface {
	HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error)
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	GetCollectionInfo(ctx context.Context, collectionName string) (*qdrant.CollectionInfo, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	DeleteCollection(ctx context.Context, collectionName string) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Delete(ctx context.Context, request *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	Count(ctx context.Context, request *qdrant.CountPoints) (uint64, error)
	Close() error
}

// QdrantStore is a Store implementation using Qdrant's native gRPC client.
type QdrantStore struct {
	client   qdrantAPI
	embedder Embedder
	config   QdrantConfig
	logger   *logging.Logger

	// collections caches names known to exist.
	collections sync.Map

	circuitBreaker struct {
		failures int
		lastFail time.Time
		mu       sync.Mutex
	}
}

// NewQdrantStore connects to Qdrant and verifies the server is healthy.
func NewQdrantStore(config QdrantConfig, embedder Embedder, logger *logging.Logger) (*QdrantStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if !config.UseTLS {
		logger.Warn(context.Background(), "qdrant gRPC connection is not using TLS",
			zap.String("host", config.Host))
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		APIKey: config.APIKey,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := newQdrantStoreWithClient(client, config, embedder, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.healthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	return store, nil
}

func newQdrantStoreWithClient(client qdrantAPI, config QdrantConfig, embedder Embedder, logger *logging.Logger) *QdrantStore {
	return &QdrantStore{
		client:   client,
		embedder: embedder,
		config:   config,
		logger:   logger,
	}
}

// Close closes the Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *QdrantStore) healthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.HealthCheck")
	defer span.End()

	if _, err := s.client.HealthCheck(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("health check failed: %w", err)
	}
	span.SetStatus(codes.Ok, "healthy")
	return nil
}

// retryOperation retries an operation with exponential backoff.
func (s *QdrantStore) retryOperation(ctx context.Context, operationName string, operation func() error) error {
	backoff := s.config.RetryBackoff

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if s.isCircuitOpen() {
			return fmt.Errorf("%s: circuit breaker open", operationName)
		}

		err := operation()
		if err == nil {
			s.resetCircuitBreaker()
			return nil
		}

		if !IsTransientError(err) {
			return fmt.Errorf("%s failed (permanent): %w", operationName, err)
		}

		s.recordFailure()

		if attempt == s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", operationName, s.config.MaxRetries, err)
		}

		s.logger.Debug(ctx, "retrying qdrant operation",
			zap.String("operation", operationName),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", operationName, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil
}

func (s *QdrantStore) recordFailure() {
	s.circuitBreaker.mu.Lock()
	defer s.circuitBreaker.mu.Unlock()
	s.circuitBreaker.failures++
	s.circuitBreaker.lastFail = time.Now()
}

func (s *QdrantStore) resetCircuitBreaker() {
	s.circuitBreaker.mu.Lock()
	defer s.circuitBreaker.mu.Unlock()
	s.circuitBreaker.failures = 0
}

func (s *QdrantStore) isCircuitOpen() bool {
	s.circuitBreaker.mu.Lock()
	defer s.circuitBreaker.mu.Unlock()

	if s.circuitBreaker.failures >= s.config.CircuitBreakerThreshold {
		// Half-open after 30 seconds
		if time.Since(s.circuitBreaker.lastFail) > 30*time.Second {
			s.circuitBreaker.failures = 0
			return false
		}
		return true
	}
	return false
}

// EnsureCollection creates the collection with the configured vector size
// and distance if it does not exist. An existing collection with a different
// vector size is rejected with ErrDimensionMismatch.
func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.EnsureCollection")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection))

	if err := ValidateCollectionName(collection); err != nil {
		return err
	}
	if _, ok := s.collections.Load(collection); ok {
		return nil
	}

	var exists bool
	err := s.retryOperation(ctx, "collection_exists", func() error {
		var err error
		exists, err = s.client.CollectionExists(ctx, collection)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("checking collection %s: %w", collection, err)
	}

	if exists {
		if err := s.checkDimension(ctx, collection); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	} else {
		err = s.retryOperation(ctx, "create_collection", func() error {
			return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
				CollectionName: collection,
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
					Size:     s.config.VectorSize,
					Distance: s.config.Distance,
				}),
			})
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("creating collection %s: %w", collection, err)
		}
		s.logger.Info(ctx, "created qdrant collection",
			zap.String("collection", collection),
			zap.Uint64("vector_size", s.config.VectorSize),
		)
	}

	s.collections.Store(collection, true)
	span.SetStatus(codes.Ok, "success")
	return nil
}

// DeleteCollection drops collection if it exists and forgets the cached
// existence check, so the next EnsureCollection recreates it.
func (s *QdrantStore) DeleteCollection(ctx context.Context, collection string) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.DeleteCollection")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection))

	if err := ValidateCollectionName(collection); err != nil {
		return err
	}
	defer s.collections.Delete(collection)

	var exists bool
	err := s.retryOperation(ctx, "collection_exists", func() error {
		var err error
		exists, err = s.client.CollectionExists(ctx, collection)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("checking collection %s: %w", collection, err)
	}
	if !exists {
		span.SetStatus(codes.Ok, "collection absent")
		return nil
	}

	err = s.retryOperation(ctx, "delete_collection", func() error {
		return s.client.DeleteCollection(ctx, collection)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting collection %s: %w", collection, err)
	}

	s.logger.Info(ctx, "deleted qdrant collection", zap.String("collection", collection))
	span.SetStatus(codes.Ok, "success")
	return nil
}

func (s *QdrantStore) checkDimension(ctx context.Context, collection string) error {
	var info *qdrant.CollectionInfo
	err := s.retryOperation(ctx, "get_collection_info", func() error {
		var err error
		info, err = s.client.GetCollectionInfo(ctx, collection)
		return err
	})
	if err != nil {
		return fmt.Errorf("getting collection info for %s: %w", collection, err)
	}

	size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if size != 0 && size != s.config.VectorSize {
		return fmt.Errorf("%w: collection %s has %d dimensions, embedder produces %d",
			ErrDimensionMismatch, collection, size, s.config.VectorSize)
	}
	return nil
}

// pointID maps a document ID to a Qdrant point ID. UUIDs are used as-is;
// any other ID is hashed into a stable UUIDv5.
func pointID(id string) *qdrant.PointId {
	if _, err := uuid.Parse(id); err == nil {
		return qdrant.NewIDUUID(id)
	}
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String())
}

// AddDocuments embeds docs and upserts them as points. The payload carries
// the content, the original document ID and the metadata.
func (s *QdrantStore) AddDocuments(ctx context.Context, collection string, docs []Document) ([]string, error) {
	ctx, span := tracer.Start(ctx, "QdrantStore.AddDocuments")
	defer span.End()
	span.SetAttributes(
		attribute.Int("document_count", len(docs)),
		attribute.String("collection", collection),
	)

	if len(docs) == 0 {
		return nil, ErrEmptyDocuments
	}
	if err := s.EnsureCollection(ctx, collection); err != nil {
		span.RecordError(err)
		return nil, err
	}

	vectors, err := embedDocuments(ctx, s.embedder, docs, int(s.config.VectorSize))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	points := make([]*qdrant.PointStruct, len(docs))
	ids := make([]string, len(docs))
	for i, doc := range docs {
		if doc.ID == "" {
			return nil, fmt.Errorf("document at index %d has no ID", i)
		}
		ids[i] = doc.ID

		raw := make(map[string]any, len(doc.Metadata)+2)
		for k, v := range doc.Metadata {
			raw[k] = v
		}
		raw["content"] = doc.Content
		raw["id"] = doc.ID

		payload, err := qdrant.TryValueMap(raw)
		if err != nil {
			return nil, fmt.Errorf("building payload for document %s: %w", doc.ID, err)
		}

		points[i] = &qdrant.PointStruct{
			Id:      pointID(doc.ID),
			Vectors: qdrant.NewVectorsDense(vectors[i]),
			Payload: payload,
		}
	}

	err = s.retryOperation(ctx, "upsert", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("upserting points to collection %s: %w", collection, err)
	}

	span.SetAttributes(attribute.Int("points_added", len(ids)))
	span.SetStatus(codes.Ok, "success")
	return ids, nil
}

// DeleteDocuments deletes points by document ID.
func (s *QdrantStore) DeleteDocuments(ctx context.Context, collection string, ids []string) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.DeleteDocuments")
	defer span.End()
	span.SetAttributes(
		attribute.Int("id_count", len(ids)),
		attribute.String("collection", collection),
	)

	if len(ids) == 0 {
		return nil
	}
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}

	err := s.retryOperation(ctx, "delete", func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         qdrant.NewPointsSelector(pointIDs...),
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if status.Code(err) == grpccodes.NotFound {
			return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
		}
		return fmt.Errorf("deleting points from %s: %w", collection, err)
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// Count returns the exact number of points in collection.
func (s *QdrantStore) Count(ctx context.Context, collection string) (int, error) {
	ctx, span := tracer.Start(ctx, "QdrantStore.Count")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection))

	if err := ValidateCollectionName(collection); err != nil {
		return 0, err
	}

	var n uint64
	err := s.retryOperation(ctx, "count", func() error {
		var err error
		n, err = s.client.Count(ctx, &qdrant.CountPoints{
			CollectionName: collection,
			Exact:          qdrant.PtrOf(true),
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		if status.Code(err) == grpccodes.NotFound {
			return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
		}
		return 0, fmt.Errorf("counting points in %s: %w", collection, err)
	}

	span.SetAttributes(attribute.Int64("point_count", int64(n)))
	return int(n), nil
}

var _ Store = (*QdrantStore)(nil)
