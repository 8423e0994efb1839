package main

import (
	"media-service/app"
	"media-service/pkg/observability"
)

// 独立的转码 Worker 进程，与 API 进程共享 redis 队列和数据库
func main() {
	observability.StartProfiling("media-worker")
	app.RunWorker()
}
