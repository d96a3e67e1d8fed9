package controllers

import (
	"github.com/reusee/dscope"
	"github.com/reusee/taidoc/debugs"
	"github.com/reusee/taidoc/generators"
	"github.com/reusee/taidoc/logs"
	"github.com/reusee/taidoc/taiconfigs"
)

type Module struct {
	dscope.Module
	Generators generators.Module
	Configs    taiconfigs.Module
	Logs       logs.Module
	Debugs     debugs.Module
}
