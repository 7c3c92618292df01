// Package dependency provides a small directed acyclic graph used to order
// the resources of a catalog.
//
// Every resource in a run is a Node. Edges point from a resource to the
// resources it requires: the config file requires its directory, the
// service requires its config files, and so on. The convergence engine
// walks TopologicalOrder and, when a resource fails, uses
// TransitiveDependents to mark everything downstream as skipped.
//
// # Example
//
//	g := dependency.New()
//	g.AddNode(dependency.Node{ID: "package:rabbitmq-server", Kind: dependency.KindPackage})
//	g.AddNode(dependency.Node{
//	    ID:        "file:/etc/rabbitmq/rabbitmq.config",
//	    Kind:      dependency.KindFile,
//	    DependsOn: []dependency.NodeID{"package:rabbitmq-server"},
//	})
//	g.AddNode(dependency.Node{
//	    ID:        "service:rabbitmq-server",
//	    Kind:      dependency.KindService,
//	    DependsOn: []dependency.NodeID{"file:/etc/rabbitmq/rabbitmq.config"},
//	})
//
//	order, err := g.TopologicalOrder()
//	// order: package, file, service
//
// # Determinism
//
// The graph remembers insertion order. Among nodes that are ready at the
// same time, the one added first comes first, so a catalog always converges
// in the same sequence.
//
// # Thread Safety
//
// Graph is not safe for concurrent mutation. The engine builds and walks it
// from a single goroutine.
package dependency
