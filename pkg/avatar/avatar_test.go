package avatar

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	puts    map[string][]byte
	deletes []string
	putErr  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.puts == nil {
		f.puts = make(map[string][]byte)
	}
	f.puts[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestUploadBuildsKeyAndURL(t *testing.T) {
	api := &fakeS3{}
	host := newS3Host(api, "avatars", "http://cdn.local/avatars/")

	obj, err := host.Upload(context.Background(), Upload{
		Folder:      "todoApp",
		Owner:       "Jane Doe",
		Ext:         ".PNG",
		ContentType: "image/png",
		Size:        3,
		Body:        bytes.NewReader([]byte{1, 2, 3}),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(obj.Key, "todoApp/jane-doe-"), obj.Key)
	assert.True(t, strings.HasSuffix(obj.Key, ".png"), obj.Key)
	assert.Equal(t, "http://cdn.local/avatars/"+obj.Key, obj.URL)
	assert.Equal(t, []byte{1, 2, 3}, api.puts[obj.Key])
}

func TestUploadError(t *testing.T) {
	host := newS3Host(&fakeS3{putErr: errors.New("denied")}, "b", "http://x")
	_, err := host.Upload(context.Background(), Upload{Folder: "f", Body: bytes.NewReader(nil)})
	assert.ErrorContains(t, err, "denied")
}

func TestDestroy(t *testing.T) {
	api := &fakeS3{}
	host := newS3Host(api, "b", "http://x")

	require.NoError(t, host.Destroy(context.Background(), "todoApp/a.png"))
	require.NoError(t, host.Destroy(context.Background(), ""))
	assert.Equal(t, []string{"todoApp/a.png"}, api.deletes)
}

func TestObjectKeyUnique(t *testing.T) {
	a := ObjectKey("todoApp", "", ".jpg")
	b := ObjectKey("todoApp", "", ".jpg")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "todoApp/"))
}
