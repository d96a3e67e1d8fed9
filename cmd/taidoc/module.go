package main

import (
	"github.com/reusee/dscope"
	"github.com/reusee/taidoc/controllers"
	"github.com/reusee/taidoc/watches"
)

type Module struct {
	dscope.Module
	Controllers controllers.Module
	Watches     watches.Module
}
