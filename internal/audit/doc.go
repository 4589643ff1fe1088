// Package audit persists deny and error plugin verdicts to a local bbolt
// database, keyed by insertion order so an operator can replay what a policy denied
// without needing the control plane or an external log sink.
package audit
