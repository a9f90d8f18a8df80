package reporter

// Reporter defines the interface for progress reporting.
type Reporter interface {
	Hardware(summary HardwareSummary)
	BatchStarted(info BatchStartInfo)
	FolderSkipped(info SkipInfo)
	JobStarted(info JobStartInfo)
	PhaseProgress(update PhaseProgress)
	EncodingStarted(name string)
	EncodingProgress(progress ProgressSnapshot)
	RenditionComplete(summary RenditionSummary)
	ValidationComplete(summary ValidationSummary)
	JobComplete(summary JobSummary)
	Warning(message string)
	Error(err ReporterError)
	BatchComplete(summary BatchSummary)
	Verbose(message string)
}

// NullReporter is a no-op reporter that discards all updates.
type NullReporter struct{}

func (NullReporter) Hardware(HardwareSummary)             {}
func (NullReporter) BatchStarted(BatchStartInfo)          {}
func (NullReporter) FolderSkipped(SkipInfo)               {}
func (NullReporter) JobStarted(JobStartInfo)              {}
func (NullReporter) PhaseProgress(PhaseProgress)          {}
func (NullReporter) EncodingStarted(string)               {}
func (NullReporter) EncodingProgress(ProgressSnapshot)    {}
func (NullReporter) RenditionComplete(RenditionSummary)   {}
func (NullReporter) ValidationComplete(ValidationSummary) {}
func (NullReporter) JobComplete(JobSummary)               {}
func (NullReporter) Warning(string)                       {}
func (NullReporter) Error(ReporterError)                  {}
func (NullReporter) BatchComplete(BatchSummary)           {}
func (NullReporter) Verbose(string)                       {}
