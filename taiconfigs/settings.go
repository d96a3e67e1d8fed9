package taiconfigs

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/reusee/taidoc/aiblocks"
	"github.com/reusee/taidoc/cmds"
	"github.com/reusee/taidoc/configs"
	"github.com/reusee/taidoc/logs"
	"github.com/reusee/taidoc/vars"
)

var (
	workFileFlag     = cmds.Var[string]("-file")
	syntaxFlag       = cmds.Var[string]("-syntax")
	debounceFlag     = cmds.Var[time.Duration]("-debounce")
	systemPromptFlag = cmds.Var[string]("-system")
)

func init() {
	cmds.GlobalExecutor.Describe("-file", "the work file holding the conversation")
	cmds.GlobalExecutor.Describe("-syntax", "markup syntax: bang (!+begin_ai) or org (#+begin_ai)")
	cmds.GlobalExecutor.Describe("-debounce", "quiet period before handling a change, e.g. 200ms")
	cmds.GlobalExecutor.Describe("-system", "system instruction used when the conversation has none")
}

var ErrNoWorkFile = errors.New("work file not specified, use -file <path>")

type WorkFile string

type GetWorkFile func() (WorkFile, error)

func (Module) GetWorkFile() GetWorkFile {
	return func() (WorkFile, error) {
		if *workFileFlag == "" {
			return "", ErrNoWorkFile
		}
		path, err := filepath.Abs(*workFileFlag)
		if err != nil {
			return "", err
		}
		return WorkFile(path), nil
	}
}

type SyntaxName string

func (Module) SyntaxName(
	loader configs.Loader,
) SyntaxName {
	return vars.FirstNonZero(
		SyntaxName(*syntaxFlag),
		configs.First[SyntaxName](loader, "syntax"),
		SyntaxName(os.Getenv("TAIDOC_SYNTAX")),
	)
}

type GetSyntax func() (aiblocks.Syntax, error)

func (Module) GetSyntax(
	name SyntaxName,
) GetSyntax {
	return sync.OnceValues(func() (aiblocks.Syntax, error) {
		syntax, err := aiblocks.SyntaxByName(string(name))
		if err != nil {
			return syntax, err
		}
		return syntax, syntax.Validate()
	})
}

type Debounce time.Duration

const DefaultDebounce = Debounce(100 * time.Millisecond)

func (Module) Debounce(
	loader configs.Loader,
	logger logs.Logger,
) Debounce {
	if *debounceFlag != 0 {
		return Debounce(*debounceFlag)
	}
	if str := configs.First[string](loader, "debounce"); str != "" {
		d, err := time.ParseDuration(str)
		if err == nil {
			return Debounce(d)
		}
		logger.Warn("invalid debounce, using default",
			"value", str,
			"error", err,
		)
	}
	return DefaultDebounce
}

type SystemPrompt string

func (Module) SystemPrompt(
	loader configs.Loader,
) SystemPrompt {
	return vars.FirstNonZero(
		SystemPrompt(*systemPromptFlag),
		configs.First[SystemPrompt](loader, "system_prompt"),
	)
}
