package generators

import (
	"github.com/reusee/dscope"
	"github.com/reusee/taidoc/configs"
	"github.com/reusee/taidoc/logs"
	"github.com/reusee/taidoc/nets"
)

type Module struct {
	dscope.Module
	Configs configs.Module
	Nets    nets.Module
	Logs    logs.Module
}
