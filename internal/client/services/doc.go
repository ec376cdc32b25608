// Package services holds the FitIQ client use cases. Each service talks to
// the backend through client.Client and to the local cache through a
// repomanager.RepositoryManager, so every mutation is stored locally and
// queued in the outbox within one transaction before it is delivered.
package services
