package nets

import (
	"github.com/reusee/dscope"
	"github.com/reusee/taidoc/configs"
	"github.com/reusee/taidoc/logs"
)

type Module struct {
	dscope.Module
	Configs configs.Module
	Logs    logs.Module
}
