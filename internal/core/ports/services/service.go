package services

// ServiceContainer aggregates the service facades handed to the HTTP layer.
type ServiceContainer struct {
	Transaction TransactionSvcFacade
	SplitEntry  SplitEntrySvcFacade
	Export      ExportSvcFacade
	Workflow    WorkflowSvcFacade
}
