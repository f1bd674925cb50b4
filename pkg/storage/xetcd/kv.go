package xetcd

import (
	"context"
	"fmt"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// KeyValue etcd 键值及其版本信息
type KeyValue struct {
	Key            string
	Value          []byte
	CreateRevision int64
	ModRevision    int64
	Lease          int64
}

func fromPB(kv *mvccpb.KeyValue) KeyValue {
	return KeyValue{
		Key:            string(kv.Key),
		Value:          kv.Value,
		CreateRevision: kv.CreateRevision,
		ModRevision:    kv.ModRevision,
		Lease:          kv.Lease,
	}
}

// Get 读取 key，同时返回读取时的存储 revision
//
// key 不存在时返回 ErrKeyNotFound，revision 仍然有效，可用于从该点开始 Watch。
func (c *Client) Get(ctx context.Context, key string) (*KeyValue, int64, error) {
	if err := c.checkPreconditions(ctx, key); err != nil {
		return nil, 0, err
	}
	resp, err := c.client.Get(ctx, key)
	if err != nil {
		return nil, 0, fmt.Errorf("xetcd: get %q: %w", key, err)
	}
	rev := resp.Header.GetRevision()
	if len(resp.Kvs) == 0 {
		return nil, rev, ErrKeyNotFound
	}
	kv := fromPB(resp.Kvs[0])
	return &kv, rev, nil
}

// List 返回 prefix 下的全部 key，按 CreateRevision 升序
func (c *Client) List(ctx context.Context, prefix string) ([]KeyValue, int64, error) {
	if err := c.checkPreconditions(ctx, prefix); err != nil {
		return nil, 0, err
	}
	resp, err := c.client.Get(ctx, prefix,
		clientv3.WithPrefix(),
		clientv3.WithSort(clientv3.SortByCreateRevision, clientv3.SortAscend),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("xetcd: list %q: %w", prefix, err)
	}
	out := make([]KeyValue, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		out = append(out, fromPB(kv))
	}
	return out, resp.Header.GetRevision(), nil
}

// PutWithLease 写入挂在租约上的 key，返回写入 revision
//
// 对新 key 而言写入 revision 即 CreateRevision。lease 为 0 表示不挂租约。
func (c *Client) PutWithLease(ctx context.Context, key string, value []byte, lease int64) (int64, error) {
	if err := c.checkPreconditions(ctx, key); err != nil {
		return 0, err
	}
	var opts []clientv3.OpOption
	if lease != 0 {
		opts = append(opts, clientv3.WithLease(clientv3.LeaseID(lease)))
	}
	resp, err := c.client.Put(ctx, key, string(value), opts...)
	if err != nil {
		return 0, fmt.Errorf("xetcd: put %q: %w", key, err)
	}
	return resp.Header.GetRevision(), nil
}

// Delete 删除 key，返回是否确实删除了
func (c *Client) Delete(ctx context.Context, key string) (bool, error) {
	if err := c.checkPreconditions(ctx, key); err != nil {
		return false, err
	}
	resp, err := c.client.Delete(ctx, key)
	if err != nil {
		return false, fmt.Errorf("xetcd: delete %q: %w", key, err)
	}
	return resp.Deleted > 0, nil
}
