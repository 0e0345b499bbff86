package console

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"marketpulse/internal/application/port"
)

type Sink struct {
	mu  sync.Mutex
	out io.Writer
}

func NewSink() port.Sink { return &Sink{out: os.Stdout} }

func NewWriterSink(w io.Writer) *Sink { return &Sink{out: w} }

// 每个显示帧前后各留一个空行，和日志行分开
func (s *Sink) WriteBlock(ts time.Time, block string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprint(s.out, "\n"+block+"\n")
	return err
}

func (s *Sink) NewLine() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprint(s.out, "\n")
	return err
}
