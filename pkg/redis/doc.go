// Package redis connects to Redis with github.com/redis/go-redis/v9 and
// exposes the pieces the tenant services need from it.
//
// Connect retries the initial ping according to Config, Healthcheck wraps a
// ping as a readiness check, and TenantSet keeps the list of registered
// tenant ids in a Redis set. The tenant reconciler reads the same set, so a
// tenant added through TenantSet is picked up by every replica on its next
// sync.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	set := redis.NewTenantSet(client, "tenants")
//	if _, err := set.Add(ctx, "acme"); err != nil {
//		return err
//	}
package redis
