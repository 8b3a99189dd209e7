package playlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"chaosball/pkg/entities"
)

// ElasticsearchConfig holds configuration options for the Elasticsearch play log
type ElasticsearchConfig struct {
	URL         string
	Username    string
	Password    string
	IndexPrefix string
}

// DefaultElasticsearchConfig returns a default configuration
func DefaultElasticsearchConfig() *ElasticsearchConfig {
	return &ElasticsearchConfig{
		URL:         "http://localhost:9200",
		IndexPrefix: "chaosball",
	}
}

// ElasticsearchRepository implements Repository using Elasticsearch. It
// wraps a base repository so reads still work when the cluster is down.
type ElasticsearchRepository struct {
	baseRepo Repository
	client   *elasticsearch.Client
	index    string
}

// NewElasticsearchRepository creates a new Elasticsearch play log
func NewElasticsearchRepository(baseRepo Repository, config *ElasticsearchConfig) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{config.URL},
	}
	if config.Username != "" && config.Password != "" {
		cfg.Username = config.Username
		cfg.Password = config.Password
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Elasticsearch client: %w", err)
	}

	if config.IndexPrefix == "" {
		config.IndexPrefix = "chaosball"
	}

	return &ElasticsearchRepository{
		baseRepo: baseRepo,
		client:   client,
		index:    config.IndexPrefix + "-plays",
	}, nil
}

// AppendPlay archives a committed play in both the base repository and
// Elasticsearch. An indexing failure is logged, not returned, so a dead
// cluster never aborts a committed turn.
func (r *ElasticsearchRepository) AppendPlay(ctx context.Context, record *entities.PlayRecord) error {
	if err := r.baseRepo.AppendPlay(ctx, record); err != nil {
		return err
	}

	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("error marshaling play record: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: fmt.Sprintf("%s-%d", record.MatchID, record.Sequence),
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, r.client)
	if err != nil {
		log.Printf("[PLAYLOG] Error indexing play %s-%d: %v", record.MatchID, record.Sequence, err)
		return nil
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Printf("[PLAYLOG] Elasticsearch rejected play %s-%d: %s", record.MatchID, record.Sequence, res.Status())
	}

	return nil
}

// GetPlays retrieves the most recent plays for a match, newest first.
// Falls back to the base repository if the search fails.
func (r *ElasticsearchRepository) GetPlays(ctx context.Context, matchID string, limit int) ([]*entities.PlayRecord, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"matchId": matchID,
			},
		},
		"sort": []map[string]interface{}{
			{"sequence": map[string]interface{}{"order": "desc"}},
		},
		"size": limit,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("error encoding search query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{r.index},
		Body:  &buf,
	}

	res, err := req.Do(ctx, r.client)
	if err != nil {
		log.Printf("[PLAYLOG] Search failed, falling back to base repository: %v", err)
		return r.baseRepo.GetPlays(ctx, matchID, limit)
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Printf("[PLAYLOG] Elasticsearch search error %s, falling back to base repository", res.Status())
		return r.baseRepo.GetPlays(ctx, matchID, limit)
	}

	var searchResult struct {
		Hits struct {
			Hits []struct {
				Source entities.PlayRecord `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&searchResult); err != nil {
		return nil, fmt.Errorf("error decoding search response: %w", err)
	}

	plays := make([]*entities.PlayRecord, 0, len(searchResult.Hits.Hits))
	for _, hit := range searchResult.Hits.Hits {
		record := hit.Source
		plays = append(plays, &record)
	}

	return plays, nil
}

// Close releases the base repository resources
func (r *ElasticsearchRepository) Close() error {
	return r.baseRepo.Close()
}
