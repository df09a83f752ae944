package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// azureArtifactStore keeps artifacts as block blobs in one container
type azureArtifactStore struct {
	client    *azblob.Client
	container string
}

// NewAzureArtifactStore connects with a shared key and makes sure the
// container exists
func NewAzureArtifactStore(ctx context.Context, accountName, accountKey, container string) (ArtifactStore, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net/", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	if _, err := client.CreateContainer(ctx, container, nil); err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, fmt.Errorf("failed to create container %q: %w", container, err)
	}

	return &azureArtifactStore{client: client, container: container}, nil
}

func (s *azureArtifactStore) Name() string {
	return "azure"
}

func (s *azureArtifactStore) Put(ctx context.Context, key string, artifact Artifact) error {
	contentType := artifact.ContentType
	_, err := s.client.UploadBuffer(ctx, s.container, key, artifact.Data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return fmt.Errorf("upload of %s failed: %w", key, err)
	}
	return nil
}

func (s *azureArtifactStore) Get(ctx context.Context, key string) (Artifact, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return Artifact{}, ErrArtifactNotFound
		}
		return Artifact{}, fmt.Errorf("download of %s failed: %w", key, err)
	}

	body := resp.Body
	defer body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return Artifact{}, fmt.Errorf("download of %s failed: %w", key, err)
	}

	a := Artifact{Data: buf.Bytes()}
	if resp.ContentType != nil {
		a.ContentType = *resp.ContentType
	}
	return a, nil
}

func (s *azureArtifactStore) DeletePrefix(ctx context.Context, prefix string) error {
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("listing %s failed: %w", prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			if _, err := s.client.DeleteBlob(ctx, s.container, *item.Name, nil); err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
				return fmt.Errorf("delete of %s failed: %w", *item.Name, err)
			}
		}
	}
	return nil
}
