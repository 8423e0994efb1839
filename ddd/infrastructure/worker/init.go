package worker

import "media-service/pkg/manager"

func init() {
	manager.RegisterComponentPlugin(&TranscodeWorkerComponentPlugin{})
}
