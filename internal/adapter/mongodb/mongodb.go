package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"ragsearch/internal/domain"
)

// Options configures the document retriever.
type Options struct {
	URI        string `key:"uri" validate:"required"`
	Database   string `key:"db" validate:"required"`
	Collection string `key:"collection" validate:"required"`
}

// Client is the part of a MongoDB client the retriever uses.
type Client interface {
	Find(ctx context.Context, database, collection string, filter any) ([]bson.D, error)
	Disconnect(ctx context.Context) error
}

// Dialer opens a Client for a connection string.
type Dialer func(ctx context.Context, uri string) (Client, error)

// Option customizes a Retriever.
type Option func(*Retriever)

// WithDialer replaces the driver dialer.
func WithDialer(dial Dialer) Option {
	return func(r *Retriever) {
		r.dial = dial
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Retriever runs find filters against one collection.
type Retriever struct {
	opts   Options
	dial   Dialer
	logger *zap.Logger
	client Client
}

func New(opts Options, options ...Option) *Retriever {
	r := &Retriever{
		opts:   opts,
		dial:   Dial,
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *Retriever) Connect(ctx context.Context) error {
	if r.client != nil {
		return nil
	}

	client, err := r.dial(ctx, r.opts.URI)
	if err != nil {
		return domain.NewResourceError(domain.KindDocument, "connect", err)
	}

	r.client = client
	r.logger.Debug("mongodb connected",
		zap.String("db", r.opts.Database),
		zap.String("collection", r.opts.Collection))
	return nil
}

// Query runs a find. req.Filter is used as-is when set; otherwise req.Text
// is parsed as Extended JSON, and an empty Text matches every document.
func (r *Retriever) Query(ctx context.Context, req domain.Request) ([]domain.Record, error) {
	filter, err := parseFilter(req)
	if err != nil {
		return nil, err
	}

	if err := r.Connect(ctx); err != nil {
		return nil, err
	}

	docs, err := r.client.Find(ctx, r.opts.Database, r.opts.Collection, filter)
	if err != nil {
		return nil, domain.NewResourceError(domain.KindDocument, "find", err)
	}

	source := r.opts.Database + "." + r.opts.Collection
	records := make([]domain.Record, 0, len(docs))
	for _, doc := range docs {
		rec := domain.Record{
			Columns: make([]string, 0, len(doc)),
			Values:  make([]any, 0, len(doc)),
			Source:  source,
		}
		for _, e := range doc {
			rec.Columns = append(rec.Columns, e.Key)
			rec.Values = append(rec.Values, e.Value)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseFilter(req domain.Request) (any, error) {
	if req.Filter != nil {
		return req.Filter, nil
	}
	if req.Text == "" {
		return bson.D{}, nil
	}
	var filter bson.D
	if err := bson.UnmarshalExtJSON([]byte(req.Text), false, &filter); err != nil {
		return nil, domain.NewRequestError(domain.KindDocument,
			fmt.Sprintf("filter is not valid Extended JSON: %q", req.Text), err)
	}
	return filter, nil
}

func (r *Retriever) Close() error {
	if r.client == nil {
		return nil
	}
	client := r.client
	r.client = nil

	r.logger.Debug("mongodb disconnected")
	if err := client.Disconnect(context.Background()); err != nil {
		return domain.NewResourceError(domain.KindDocument, "disconnect", err)
	}
	return nil
}

type driverClient struct {
	client *mongo.Client
}

// Dial connects with the official driver and pings the primary so an
// unreachable server fails here rather than on the first find.
func Dial(ctx context.Context, uri string) (Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return &driverClient{client: client}, nil
}

func (c *driverClient) Find(ctx context.Context, database, collection string, filter any) ([]bson.D, error) {
	cursor, err := c.client.Database(database).Collection(collection).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *driverClient) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
