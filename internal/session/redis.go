package session

import (
	"context"

	"github.com/go-redis/redis/v8"
)

// RedisPersister stores the credential under <namespace>:access and
// <namespace>:refresh.
type RedisPersister struct {
	client    *redis.Client
	namespace string
}

func NewRedisPersister(client *redis.Client, namespace string) *RedisPersister {
	if namespace == "" {
		namespace = "storefront:session"
	}
	return &RedisPersister{client: client, namespace: namespace}
}

func (p *RedisPersister) key(k string) string { return p.namespace + ":" + k }

func (p *RedisPersister) Load(ctx context.Context) (Credential, error) {
	vals, err := p.client.MGet(ctx, p.key(KeyAccess), p.key(KeyRefresh)).Result()
	if err != nil {
		return Credential{}, err
	}
	var c Credential
	if s, ok := vals[0].(string); ok {
		c.Access = s
	}
	if s, ok := vals[1].(string); ok {
		c.Refresh = s
	}
	return c, nil
}

func (p *RedisPersister) Save(ctx context.Context, c Credential) error {
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, p.key(KeyAccess), c.Access, 0)
		pipe.Set(ctx, p.key(KeyRefresh), c.Refresh, 0)
		return nil
	})
	return err
}

func (p *RedisPersister) Clear(ctx context.Context) error {
	return p.client.Del(ctx, p.key(KeyAccess), p.key(KeyRefresh)).Err()
}
