package logging

const (
	BaseDataDir = "data"
	LogsDir     = "logs"
)

// ProcessName identifies the process a logger belongs to. Log files are
// grouped per process under data/logs/<process>/.
type ProcessName string

const (
	HelpnetProcess   ProcessName = "helpnetd"
	ResponderProcess ProcessName = "respondersim"
)

type LoggerConfig struct {
	LogDir        string
	ProcessName   ProcessName
	IsDevelopment bool
}

func NewDefaultConfig(processName ProcessName) LoggerConfig {
	return LoggerConfig{
		LogDir:        BaseDataDir,
		ProcessName:   processName,
		IsDevelopment: true,
	}
}
