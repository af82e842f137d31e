package repository

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const (
	defaultVectorDimension = 1024
)

// QdrantConnectionConfig holds configuration for Qdrant connection
type QdrantConnectionConfig struct {
	Host            string
	Port            int
	Collection      string
	APIKey          string // Qdrant Cloud API Key (enables TLS automatically)
	UseTLS          bool
	VectorDimension int
}

func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// ChunkPayload is stored next to every chunk vector.
type ChunkPayload struct {
	Document      string `json:"document"`
	ProcessNumber string `json:"process_number"`
	ChunkIndex    int    `json:"chunk_index"`
	DocumentType  string `json:"document_type"`
	Text          string `json:"text"`
}

// ChunkPoint is one vector to upsert.
type ChunkPoint struct {
	ID      string
	Vector  []float32
	Payload ChunkPayload
}

// ChunkSearchResult is a scored chunk.
type ChunkSearchResult struct {
	ID      string
	Score   float32
	Payload ChunkPayload
}

// QdrantRepository stores chunk vectors in a Qdrant collection.
type QdrantRepository struct {
	conn            *grpc.ClientConn
	pointsClient    pb.PointsClient
	collectClient   pb.CollectionsClient
	collectionName  string
	vectorDimension int
}

// NewQdrantRepository connects to local Qdrant (insecure) or Qdrant Cloud (TLS + API key).
func NewQdrantRepository(cfg *QdrantConnectionConfig) (*QdrantRepository, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	vectorDimension := cfg.VectorDimension
	if vectorDimension <= 0 {
		vectorDimension = defaultVectorDimension
	}

	var opts []grpc.DialOption
	if cfg.UseTLS || cfg.APIKey != "" {
		creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS13})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantRepository{
		conn:            conn,
		pointsClient:    pb.NewPointsClient(conn),
		collectClient:   pb.NewCollectionsClient(conn),
		collectionName:  cfg.Collection,
		vectorDimension: vectorDimension,
	}, nil
}

// Close closes the gRPC connection
func (r *QdrantRepository) Close() error {
	return r.conn.Close()
}

// EnsureCollection creates the collection and its payload indexes if missing.
func (r *QdrantRepository) EnsureCollection(ctx context.Context) error {
	info, err := r.collectClient.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: r.collectionName,
	})
	if err == nil {
		if size, ok := collectionVectorSize(info.GetResult()); ok && size != uint64(r.vectorDimension) {
			return fmt.Errorf("collection %s has vector size %d, expected %d", r.collectionName, size, r.vectorDimension)
		}
		return nil
	}

	_, err = r.collectClient.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(r.vectorDimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
		HnswConfig: &pb.HnswConfigDiff{
			M:           optionalUint64(16),
			EfConstruct: optionalUint64(128),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	for _, field := range []string{"process_number", "document"} {
		fieldType := pb.FieldType_FieldTypeKeyword
		_, err := r.pointsClient.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
			CollectionName: r.collectionName,
			FieldName:      field,
			FieldType:      &fieldType,
		})
		if err != nil {
			return fmt.Errorf("failed to index payload field %s: %w", field, err)
		}
	}
	return nil
}

func optionalUint64(v uint64) *uint64 {
	return &v
}

func collectionVectorSize(info *pb.CollectionInfo) (uint64, bool) {
	vectors := info.GetConfig().GetParams().GetVectorsConfig()
	if vectors == nil {
		return 0, false
	}
	if single := vectors.GetParams(); single != nil && single.GetSize() > 0 {
		return single.GetSize(), true
	}
	for _, vp := range vectors.GetParamsMap().GetMap() {
		if size := vp.GetSize(); size > 0 {
			return size, true
		}
	}
	return 0, false
}

// Upsert writes points in one request.
func (r *QdrantRepository) Upsert(ctx context.Context, points []ChunkPoint) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*pb.PointStruct, 0, len(points))
	for _, p := range points {
		uid, err := uuid.Parse(p.ID)
		if err != nil {
			return fmt.Errorf("invalid point ID %q: %w", p.ID, err)
		}
		structs = append(structs, &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: uid.String()},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: p.Vector},
				},
			},
			Payload: payloadToValues(p.Payload),
		})
	}

	wait := true
	_, err := r.pointsClient.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collectionName,
		Wait:           &wait,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func payloadToValues(p ChunkPayload) map[string]*pb.Value {
	return map[string]*pb.Value{
		"document":       stringValue(p.Document),
		"process_number": stringValue(p.ProcessNumber),
		"chunk_index":    {Kind: &pb.Value_IntegerValue{IntegerValue: int64(p.ChunkIndex)}},
		"document_type":  stringValue(p.DocumentType),
		"text":           stringValue(p.Text),
	}
}

func parsePayload(payload map[string]*pb.Value) ChunkPayload {
	return ChunkPayload{
		Document:      payload["document"].GetStringValue(),
		ProcessNumber: payload["process_number"].GetStringValue(),
		ChunkIndex:    int(payload["chunk_index"].GetIntegerValue()),
		DocumentType:  payload["document_type"].GetStringValue(),
		Text:          payload["text"].GetStringValue(),
	}
}

func keywordFilter(key, value string) *pb.Filter {
	return &pb.Filter{
		Must: []*pb.Condition{{
			ConditionOneOf: &pb.Condition_Field{
				Field: &pb.FieldCondition{
					Key:   key,
					Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: value}},
				},
			},
		}},
	}
}

// Search returns the topK chunks closest to vector, optionally within one process.
func (r *QdrantRepository) Search(ctx context.Context, vector []float32, topK int, processNumber string) ([]ChunkSearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: r.collectionName,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	}
	if processNumber != "" {
		req.Filter = keywordFilter("process_number", processNumber)
	}

	resp, err := r.pointsClient.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]ChunkSearchResult, len(resp.Result))
	for i, scored := range resp.Result {
		results[i] = ChunkSearchResult{
			ID:      scored.Id.GetUuid(),
			Score:   scored.Score,
			Payload: parsePayload(scored.Payload),
		}
	}
	return results, nil
}

// DeleteDocument removes every chunk of a document so re-indexing starts clean.
func (r *QdrantRepository) DeleteDocument(ctx context.Context, document string) error {
	_, err := r.pointsClient.Delete(ctx, &pb.DeletePoints{
		CollectionName: r.collectionName,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: keywordFilter("document", document),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete chunks of %s: %w", document, err)
	}
	return nil
}
