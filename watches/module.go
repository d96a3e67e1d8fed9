package watches

import (
	"github.com/reusee/dscope"
	"github.com/reusee/taidoc/logs"
)

type Module struct {
	dscope.Module
	Logs logs.Module
}
