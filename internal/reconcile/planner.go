package reconcile

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// CreateAction uploads a local file that has no remote counterpart.
type CreateAction struct {
	Local *LocalFile
	Meta  FileMetadata
}

// UpdateAction is a local file matched to an existing remote object. It is only a candidate:
// the executor asks the Detector whether an upload is actually required.
type UpdateAction struct {
	Remote *RemoteObject
	Local  *LocalFile
	Meta   FileMetadata
}

// Plan is the result of matching a local scan against a remote listing.
type Plan struct {
	Create []*CreateAction
	Update []*UpdateAction
	Delete []*RemoteObject
}

// HasChanges returns true if the plan contains any create, update candidate or delete.
func (p *Plan) HasChanges() bool {
	return len(p.Create) > 0 || len(p.Update) > 0 || len(p.Delete) > 0
}

// BuildPlan matches local files against remote objects by relative name.
//
// Every remote object starts as a delete candidate. A local file whose RelPath equals a
// remote BaseName becomes an update candidate and removes that object from the delete set;
// every other local file is created. If the listing holds several objects with the same
// base name, the one with the lexicographically smallest key is matched and the others
// remain delete candidates.
//
// Create and update actions keep the order of local, deletes keep the order of remote.
func BuildPlan(local []*LocalFile, remote []*RemoteObject, resolver PolicyResolver) *Plan {
	plan := &Plan{}

	byBaseName := make(map[string]*RemoteObject, len(remote))
	for _, obj := range remote {
		if cur, ok := byBaseName[obj.BaseName]; ok && cur.Key <= obj.Key {
			continue
		}
		byBaseName[obj.BaseName] = obj
	}

	matched := mapset.NewThreadUnsafeSetWithSize[*RemoteObject](len(remote))
	for _, file := range local {
		meta := resolveMeta(resolver, file.RelPath)

		obj, ok := byBaseName[file.RelPath]
		if !ok {
			plan.Create = append(plan.Create, &CreateAction{Local: file, Meta: meta})
			continue
		}

		// a second local file can never map to the same object, RelPaths are unique per scan
		matched.Add(obj)
		plan.Update = append(plan.Update, &UpdateAction{Remote: obj, Local: file, Meta: meta})
	}

	for _, obj := range remote {
		if !matched.Contains(obj) {
			plan.Delete = append(plan.Delete, obj)
		}
	}

	return plan
}

func resolveMeta(resolver PolicyResolver, relPath string) FileMetadata {
	if resolver == nil {
		return FileMetadata{}
	}
	return resolver.Resolve(relPath)
}
