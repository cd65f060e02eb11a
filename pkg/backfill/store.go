package backfill

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelsbailbonds/opsflow/pkg/domain"
	"github.com/angelsbailbonds/opsflow/pkg/patcher"

	"github.com/redis/go-redis/v9"
)

type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]domain.ProcessedDoc
}

func NewMemoryStore(initial map[string]domain.ProcessedDoc) *MemoryStore {
	docs := make(map[string]domain.ProcessedDoc, len(initial))
	for id, doc := range initial {
		docs[id] = doc
	}

	return &MemoryStore{docs: docs}
}

func (s *MemoryStore) Processed(ctx context.Context) (map[string]domain.ProcessedDoc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]domain.ProcessedDoc, len(s.docs))
	for id, doc := range s.docs {
		out[id] = doc
	}

	return out, nil
}

func (s *MemoryStore) Mark(ctx context.Context, id string, doc domain.ProcessedDoc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[id] = doc

	return nil
}

// StaticDataStore keeps the processed set in the static data of an n8n
// workflow (global.docIds), the same place the workflow's own Code nodes
// read it from. Each Mark is one fetch and full replace of the workflow.
type StaticDataStore struct {
	graphs     patcher.GraphStore
	workflowID string
}

func NewStaticDataStore(graphs patcher.GraphStore, workflowID string) *StaticDataStore {
	return &StaticDataStore{graphs: graphs, workflowID: workflowID}
}

func (s *StaticDataStore) Processed(ctx context.Context) (map[string]domain.ProcessedDoc, error) {
	graph, err := s.graphs.GetWorkflow(ctx, s.workflowID)
	if err != nil {
		return nil, err
	}

	return graph.ProcessedDocs(), nil
}

func (s *StaticDataStore) Mark(ctx context.Context, id string, doc domain.ProcessedDoc) error {
	_, err := patcher.Patch(ctx, s.graphs, s.workflowID, func(graph *domain.WorkflowGraph) error {
		graph.MarkDocProcessed(id, doc)
		return nil
	})

	return err
}

// RedisHash is the subset of the go-redis client used by RedisStore.
type RedisHash interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisStore keeps one hash per backfill: field = doc id, value = the JSON
// encoded ProcessedDoc.
type RedisStore struct {
	client RedisHash
	key    string
}

func NewRedisStore(client RedisHash, name string) *RedisStore {
	return &RedisStore{client: client, key: RedisKey(name)}
}

func RedisKey(name string) string {
	return "opsflow:backfill:" + name + ":docs"
}

// NewRedisClient connects to a redis:// URL.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return redis.NewClient(options), nil
}

func (s *RedisStore) Processed(ctx context.Context) (map[string]domain.ProcessedDoc, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, domain.NewTransientError("redis hgetall "+s.key, domain.ErrorOriginRemote, err)
	}

	docs := make(map[string]domain.ProcessedDoc, len(values))
	for id, raw := range values {
		var doc domain.ProcessedDoc
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			doc = domain.ProcessedDoc{}
		}
		docs[id] = doc
	}

	return docs, nil
}

func (s *RedisStore) Mark(ctx context.Context, id string, doc domain.ProcessedDoc) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	if err := s.client.HSet(ctx, s.key, id, string(raw)).Err(); err != nil {
		return domain.NewTransientError("redis hset "+s.key, domain.ErrorOriginRemote, err)
	}

	return nil
}
