// Package config 提供 Roundtable 的配置管理功能。
//
// 包含配置加载（默认值 → YAML → 环境变量）、校验、
// 指纹计算以及配置文件轮询监听。对话调度参数可在轮次之间热更新。
package config
