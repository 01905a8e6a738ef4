package main

// seedRepos populates the store with a demo repository so a freshly started
// mock has something to walk. Called before the server accepts requests.
func seedRepos(s *store) {
	repo, ok := s.create(s.login, "demo-app", "Seeded demo repository", false, true)
	if !ok {
		return
	}

	files := map[string]string{
		"src/index.ts":      seedIndexTS,
		"src/util.ts":       seedUtilTS,
		"docs/overview.md":  seedOverviewMD,
		"package.json":      seedPackageJSON,
		"package-lock.json": "{}\n",
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	head := repo.refs["main"]
	baseTree := repo.commits[head].Tree

	entries := make([]treeEntry, 0, len(files))
	for path, content := range files {
		sha := repo.putBlob([]byte(content))
		entries = append(entries, treeEntry{Path: path, Mode: "100644", Type: "blob", SHA: sha})
	}
	tree := repo.putTree(baseTree, entries)
	commit := repo.putCommit(tree, head, "Seed demo content")
	repo.refs["main"] = commit
}

const seedIndexTS = `import { greet } from "./util";

export function main(): void {
  console.log(greet("world"));
}
`

const seedUtilTS = `export function greet(name: string): string {
  return ` + "`hello, ${name}`" + `;
}
`

const seedOverviewMD = `# demo-app

A seeded repository used to exercise the fetch pipeline locally.
`

const seedPackageJSON = `{
  "name": "demo-app",
  "version": "1.0.0",
  "private": true
}
`
