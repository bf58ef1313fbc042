// Package qdrant is the vector index backed by a Qdrant collection over gRPC.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/kailas-cloud/pdfqa/internal/domain"
	"github.com/kailas-cloud/pdfqa/internal/domain/chunk"
	"github.com/kailas-cloud/pdfqa/internal/domain/passage"
)

// Payload keys.
const (
	payloadID     = "chunk_id"
	payloadSource = "source_id"
	payloadUnit   = "unit_index"
	payloadChunk  = "chunk_index"
	payloadText   = "text"
	payloadModel  = "model"
)

// pointNamespace derives stable point ids from chunk ids.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/kailas-cloud/pdfqa/passage"))

// collections is the subset of the generated CollectionsClient used here (ISP).
type collections interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// points is the subset of the generated PointsClient used here (ISP).
type points interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Count(ctx context.Context, in *pb.CountPoints, opts ...grpc.CallOption) (*pb.CountResponse, error)
}

// Config holds connection and collection settings.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	Collection string
	Model      string
	Dimensions int
	Logger     *zap.Logger
}

// Repo is the Qdrant vector index.
type Repo struct {
	collections collections
	points      points
	conn        *grpc.ClientConn
	cfg         Config
	logger      *zap.Logger
}

// Dial connects to Qdrant and ensures the collection exists.
func Dial(ctx context.Context, cfg Config) (*Repo, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect %s: %w: %w", addr, domain.ErrIndexPersistence, err)
	}

	r := newRepo(pb.NewCollectionsClient(conn), pb.NewPointsClient(conn), cfg)
	r.conn = conn
	if err := r.EnsureCollection(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return r, nil
}

func newRepo(c collections, p points, cfg Config) *Repo {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{collections: c, points: p, cfg: cfg, logger: logger}
}

// EnsureCollection creates the collection with cosine distance if missing.
func (r *Repo) EnsureCollection(ctx context.Context) error {
	ctx = r.auth(ctx)

	list, err := r.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("qdrant list collections: %w: %w", domain.ErrIndexPersistence, err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == r.cfg.Collection {
			return nil
		}
	}

	_, err = r.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: r.cfg.Collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(r.cfg.Dimensions),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection %s: %w: %w", r.cfg.Collection, domain.ErrIndexPersistence, err)
	}
	r.logger.Info("Qdrant collection created",
		zap.String("collection", r.cfg.Collection),
		zap.Int("dimensions", r.cfg.Dimensions),
	)
	return nil
}

// Upsert writes passages as points. The point id is derived from the chunk
// id, so re-ingesting the same chunk overwrites its point.
func (r *Repo) Upsert(ctx context.Context, passages []passage.Passage) error {
	if len(passages) == 0 {
		return nil
	}

	pts := make([]*pb.PointStruct, len(passages))
	for i, p := range passages {
		if len(p.Vector()) != r.cfg.Dimensions {
			return fmt.Errorf("passage %s: got %d dims, want %d: %w",
				p.ID(), len(p.Vector()), r.cfg.Dimensions, domain.ErrVectorDimMismatch)
		}
		pts[i] = r.toPoint(p)
	}

	wait := true
	_, err := r.points.Upsert(r.auth(ctx), &pb.UpsertPoints{
		CollectionName: r.cfg.Collection,
		Wait:           &wait,
		Points:         pts,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert %d points: %w", len(pts), err)
	}
	return nil
}

// Search returns up to k passages nearest to vector, best first.
func (r *Repo) Search(ctx context.Context, vector []float32, k int) ([]passage.Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(vector) != r.cfg.Dimensions {
		return nil, fmt.Errorf("query: got %d dims, want %d: %w",
			len(vector), r.cfg.Dimensions, domain.ErrVectorDimMismatch)
	}

	resp, err := r.points.Search(r.auth(ctx), &pb.SearchPoints{
		CollectionName: r.cfg.Collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	hits := make([]passage.Hit, 0, len(resp.GetResult()))
	for _, sp := range resp.GetResult() {
		hits = append(hits, passage.NewHit(fromPayload(sp.GetPayload()), float64(sp.GetScore())))
	}
	passage.Sort(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the exact number of points.
func (r *Repo) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := r.points.Count(r.auth(ctx), &pb.CountPoints{
		CollectionName: r.cfg.Collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Persist is a no-op: Qdrant acknowledges writes only once they are durable.
func (r *Repo) Persist(context.Context) error { return nil }

// Close closes the gRPC connection.
func (r *Repo) Close() error {
	if r.conn == nil {
		return nil
	}
	if err := r.conn.Close(); err != nil {
		return fmt.Errorf("qdrant close: %w", err)
	}
	return nil
}

func (r *Repo) auth(ctx context.Context) context.Context {
	if r.cfg.APIKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", r.cfg.APIKey)
}

// PointID returns the UUIDv5 point id for a chunk id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

func (r *Repo) toPoint(p passage.Passage) *pb.PointStruct {
	c := p.Chunk()
	return &pb.PointStruct{
		Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: PointID(p.ID())}},
		Vectors: &pb.Vectors{
			VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: p.Vector()}},
		},
		Payload: map[string]*pb.Value{
			payloadID:     stringValue(p.ID()),
			payloadSource: stringValue(c.SourceID()),
			payloadUnit:   intValue(c.UnitIndex()),
			payloadChunk:  intValue(c.ChunkIndex()),
			payloadText:   stringValue(c.Text()),
			payloadModel:  stringValue(r.cfg.Model),
		},
	}
}

func fromPayload(payload map[string]*pb.Value) passage.Passage {
	c := chunk.New(
		payload[payloadSource].GetStringValue(),
		int(payload[payloadUnit].GetIntegerValue()),
		int(payload[payloadChunk].GetIntegerValue()),
		payload[payloadText].GetStringValue(),
	)
	return passage.New(c, nil)
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func intValue(n int) *pb.Value {
	return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(n)}}
}
