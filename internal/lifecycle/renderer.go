package lifecycle

import "fileforge/internal/domain"

// Renderer presents controller events. Methods are called with the
// controller's lock held, one at a time, and must not call back into the
// controller.
type Renderer interface {
	UploadStarted(fileName string, size int64, op domain.Operation)
	UploadProgress(sent, total int64)
	AwaitingServer()
	PollingStarted(jobID string)
	JobUpdate(job domain.Job)
	Succeeded(res Result)
	Failed(message string)
	Reset(ready bool)
}

// NopRenderer ignores every event.
type NopRenderer struct{}

func (NopRenderer) UploadStarted(string, int64, domain.Operation) {}
func (NopRenderer) UploadProgress(int64, int64)                   {}
func (NopRenderer) AwaitingServer()                               {}
func (NopRenderer) PollingStarted(string)                         {}
func (NopRenderer) JobUpdate(domain.Job)                          {}
func (NopRenderer) Succeeded(Result)                              {}
func (NopRenderer) Failed(string)                                 {}
func (NopRenderer) Reset(bool)                                    {}

var _ Renderer = NopRenderer{}
