package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SignedImageURL génère une URL de téléchargement signée et expirable pour
// une image du bucket. Accepte indifféremment l'URL publique complète ou le
// chemin de l'objet.
func (u *Uploader) SignedImageURL(ctx context.Context, objectPath string, duration time.Duration) (string, error) {
	if u == nil {
		return "", fmt.Errorf("MinIO non initialisé")
	}

	scheme := "http"
	if u.useSSL {
		scheme = "https"
	}
	key := strings.TrimPrefix(objectPath, fmt.Sprintf("%s://%s/%s/", scheme, u.endpoint, u.bucket))
	key = strings.TrimPrefix(key, "/")

	presigned, err := u.client.PresignedGetObject(ctx, u.bucket, key, duration, url.Values{})
	if err != nil {
		return "", err
	}
	return presigned.String(), nil
}
