// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的数据库连接与连接池管理，
供对话记录归档（persistence.GormStore）使用。

# 核心类型

  - PoolManager：连接池管理器，持有 GORM DB 实例与底层 sql.DB，
    提供 DB()、Ping()、Stats()、Close()。
  - PoolConfig：最大空闲连接数、最大打开连接数、
    连接最大生命周期与健康检查间隔。

# 驱动

Open / Dialector 支持 postgres、mysql 与 sqlite（glebarez 纯 Go 实现）。
*/
package database
