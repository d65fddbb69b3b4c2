package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/task"
	"github.com/tsinghua-fib-lab/agentsociety-tactical/utils/input"
)

var (
	// 模拟任务名
	job = flag.String("job", "job0", "the name of the whole simulation task")
	// HTTP监听地址（ClockService与/metrics），为空表示不提供服务
	listen = flag.String("listen", ":51102", "HTTP listening address (empty means no server)")
	// 配置文件路径
	configPath = flag.String("config", "", "config file path")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	log = logrus.WithField("module", "tactical-sim")
)

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	// log: 运行时才修改
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}
	// 获取配置
	c, err := input.Load(*configPath, *configData)
	if err != nil {
		log.Panicf("%v", err)
	}
	log.Infof("%+v", c.Control)

	t, err := task.NewContext(*job, *listen, c)
	if err != nil {
		log.Panicf("init err: %v", err)
	}
	// 收到信号后在当前步结束时退出
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sig
		log.Warnf("received %v, closing", s)
		t.Close()
	}()
	t.Run()
}
