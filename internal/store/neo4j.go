package store

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jStore keeps each document as the body property of a
// (:FundraiseDocument {key}) node.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
}

// Neo4jOptions holds connection settings.
type Neo4jOptions struct {
	URI      string
	Username string
	Password string
	Database string
}

// NewNeo4jStore connects to Neo4j, verifies connectivity and ensures the key
// constraint exists.
func NewNeo4jStore(ctx context.Context, opts Neo4jOptions) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(opts.URI, neo4j.BasicAuth(opts.Username, opts.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("connecting to neo4j at %s: %w", opts.URI, err)
	}
	s := &Neo4jStore{driver: driver, database: opts.Database}
	if _, err := s.execute(ctx,
		`CREATE CONSTRAINT fundraise_document_key IF NOT EXISTS
		 FOR (d:FundraiseDocument) REQUIRE d.key IS UNIQUE`, nil); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("creating neo4j constraint: %w", err)
	}
	return s, nil
}

func (s *Neo4jStore) execute(ctx context.Context, cypher string, params map[string]any) (*neo4j.EagerResult, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{}
	if s.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(s.database))
	}
	return neo4j.ExecuteQuery(ctx, s.driver, cypher, params, neo4j.EagerResultTransformer, opts...)
}

// Get returns the document stored under key.
func (s *Neo4jStore) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := s.execute(ctx,
		`MATCH (d:FundraiseDocument {key: $key}) RETURN d.body AS body`,
		map[string]any{"key": key})
	if err != nil {
		return nil, fmt.Errorf("reading document %s: %w", key, err)
	}
	if len(res.Records) == 0 {
		return nil, ErrNotFound
	}
	raw, ok := res.Records[0].Get("body")
	if !ok {
		return nil, ErrNotFound
	}
	body, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("reading document %s: unexpected body type %T", key, raw)
	}
	return []byte(body), nil
}

// Upsert merges the node for key and replaces its body.
func (s *Neo4jStore) Upsert(ctx context.Context, key string, doc []byte) error {
	_, err := s.execute(ctx,
		`MERGE (d:FundraiseDocument {key: $key})
		 SET d.body = $body, d.updatedAt = $updatedAt`,
		map[string]any{
			"key":       key,
			"body":      string(doc),
			"updatedAt": time.Now().UTC().Format(time.RFC3339),
		})
	if err != nil {
		return fmt.Errorf("writing document %s: %w", key, err)
	}
	return nil
}

// Close closes the driver.
func (s *Neo4jStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.driver.Close(ctx)
}
