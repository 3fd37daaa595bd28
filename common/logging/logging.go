package logging

import (
	"io"
	"os"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	cst "wuyrush.io/valentine/constants"
)

// ServiceFormatter is a Formatter that:
// 1. logs the unix time in milliseconds;
// 2. logs specified service/service component name;
type ServiceFormatter struct {
	svcName string
	log.Formatter
}

// I've noticed passing a mutated *log.Entry value to downstream formatter results in logs with panic level
// and empty message, but never sure about why it happens
func (f *ServiceFormatter) Format(e *log.Entry) ([]byte, error) {
	e.Data["epochTimeMillis"] = e.Time.UnixNano() / int64(time.Millisecond)
	e.Data["service"] = f.svcName
	return f.Formatter.Format(e)
}

// NewServiceFormatter wraps a timestamp-free JSON formatter with service name and epoch millis.
func NewServiceFormatter(name string) *ServiceFormatter {
	return &ServiceFormatter{
		svcName:   name,
		Formatter: &log.JSONFormatter{DisableTimestamp: true},
	}
}

// SetupLog setups service-specific logging.
func SetupLog(name string) {
	SetupLogTo(name, os.Stdout)
}

// SetupLogTo is SetupLog with a custom sink.
func SetupLogTo(name string, w io.Writer) {
	log.SetOutput(w)
	// use unix timestamp instead of zonal one
	log.SetFormatter(NewServiceFormatter(name))
	log.SetLevel(log.InfoLevel)
	if viper.GetBool(cst.EnvVerbose) {
		log.SetLevel(log.DebugLevel)
	}
}

// WithFuncName returns a *logrus.Entry marked with the name of function calling WithFuncName
func WithFuncName() *log.Entry {
	// get the pc of the function that calls the current function
	pc, _, _, ok := runtime.Caller(1)
	var funcName string
	if ok {
		frs := runtime.CallersFrames([]uintptr{pc})
		fr, _ := frs.Next()
		funcName = fr.Function
	}
	return log.WithField(cst.LogFieldFuncName, funcName)
}
