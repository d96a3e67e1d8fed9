package generators

import (
	"github.com/reusee/taidoc/cmds"
	"github.com/reusee/taidoc/configs"
	"github.com/reusee/taidoc/logs"
	"github.com/reusee/taidoc/vars"
)

type GetDefaultGenerator func() (Generator, error)

func (Module) GetDefaultGenerator(
	name DefaultModelName,
	get GetGenerator,
) GetDefaultGenerator {
	return func() (Generator, error) {
		return get(string(name))
	}
}

var (
	defaultModelName = cmds.Var[string]("-model")
)

func init() {
	cmds.GlobalExecutor.Describe("-model", "model or configured generator name, e.g. flash, pro, ollama:llama3")
}

type DefaultModelName string

func (Module) DefaultModelName(
	loader configs.Loader,
	fallback FallbackModelName,
	logger logs.Logger,
) (ret DefaultModelName) {
	defer func() {
		logger.Info("default model", "name", ret)
	}()
	return vars.FirstNonZero(
		DefaultModelName(*defaultModelName),
		configs.First[DefaultModelName](loader, "model_name"),
		configs.First[DefaultModelName](loader, "model"),
		DefaultModelName(fallback),
	)
}

type FallbackModelName string

func (Module) FallbackModelName() FallbackModelName {
	return "flash"
}
