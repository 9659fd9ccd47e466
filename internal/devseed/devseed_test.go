package devseed

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlSeed = `
users:
  - username: alice
    password: secret
    pods:
      - name: photos
        dirs: [/albums]
        files:
          - path: /albums/readme.txt
            content: hello
            compression: snappy
        kv:
          - name: tags
            index_type: string
            entries:
              sunset: {count: 3}
        docs:
          - name: albums
            fields: {year: number, title: string}
            documents:
              - {title: summer, year: 2023}
`

func TestLoadYAML(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/seed.yaml", []byte(yamlSeed), 0o644))

	seed, err := Load(fsys, "/seed.yaml")
	require.NoError(t, err)
	require.Len(t, seed.Users, 1)

	pod := seed.Users[0].Pods[0]
	assert.Equal(t, "photos", pod.Name)
	assert.Equal(t, []string{"/albums"}, pod.Dirs)
	data, err := pod.Files[0].Data()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "string", pod.Stores[0].IndexType)
	assert.Equal(t, "number", pod.Tables[0].Fields["year"])
	assert.Equal(t, "summer", pod.Tables[0].Documents[0]["title"])
}

func TestLoadJSON(t *testing.T) {
	fsys := afero.NewMemMapFs()
	body := `{"users":[{"username":"bob","password":"pw","pods":[{"name":"p","files":[{"path":"/a.bin","base64":"AAEC"}]}]}]}`
	require.NoError(t, afero.WriteFile(fsys, "/seed.json", []byte(body), 0o644))

	seed, err := Load(fsys, "/seed.json")
	require.NoError(t, err)
	data, err := seed.Users[0].Pods[0].Files[0].Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, data)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	seed := &Seed{Users: []User{
		{Username: "", Password: ""},
		{Username: "dup", Password: "x", Pods: []Pod{{Name: "p", Files: []File{{Path: "relative"}}}, {Name: "p"}}},
		{Username: "dup", Password: "x"},
	}}
	err := seed.Validate()
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 5)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "/nope.json")
	assert.Error(t, err)
}
