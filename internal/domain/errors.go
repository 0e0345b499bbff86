package domain

import "errors"

// ErrDecode 消息格式不符合预期，丢弃即可
var ErrDecode = errors.New("decode error")

// ErrConnection 连接层错误，只终止对应的 feed
var ErrConnection = errors.New("connection error")

// ErrFetch 情绪数据源不可达或返回非 2xx
var ErrFetch = errors.New("fetch error")

// ErrScoring 打分失败，按中性 0 处理
var ErrScoring = errors.New("scoring error")

// ErrPersistence 快照写入失败
var ErrPersistence = errors.New("persistence error")
