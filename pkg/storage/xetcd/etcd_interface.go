package xetcd

import (
	"context"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// etcdClient Client 依赖的 clientv3 子集，测试中以 gomock 替换
type etcdClient interface {
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
	Put(ctx context.Context, key, val string, opts ...clientv3.OpOption) (*clientv3.PutResponse, error)
	Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error)
	Watch(ctx context.Context, key string, opts ...clientv3.OpOption) clientv3.WatchChan
	Close() error
}

var _ etcdClient = (*clientv3.Client)(nil)
