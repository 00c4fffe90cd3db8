package services

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Uploader stocke les images produits dans un bucket MinIO. Un *Uploader nil
// est valide : l'upload échoue alors proprement et l'admin peut toujours
// fournir une URL d'image externe.
type Uploader struct {
	client   *minio.Client
	bucket   string
	endpoint string
	useSSL   bool
}

// ConnectMinio initialise le client et s'assure que le bucket existe.
func ConnectMinio(ctx context.Context) *Uploader {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		log.Println("⚠️ MINIO_ENDPOINT non configuré — upload d'images désactivé")
		return nil
	}
	useSSL := os.Getenv("MINIO_USE_SSL") == "true"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), ""),
		Secure: useSSL,
	})
	if err != nil {
		log.Println("⚠️ MinIO non configuré :", err)
		return nil
	}

	bucket := os.Getenv("MINIO_BUCKET")
	if bucket == "" {
		bucket = "catalogue"
	}
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		log.Println("⚠️ MinIO injoignable — upload d'images désactivé:", err)
		return nil
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			log.Println("❌ Erreur création bucket MinIO:", err)
			return nil
		}
		log.Println("🪣 Bucket créé :", bucket)
	}

	log.Println("✅ Connecté à MinIO :", endpoint)
	return &Uploader{client: client, bucket: bucket, endpoint: endpoint, useSSL: useSSL}
}

// UploadProductImage pousse le fichier dans le bucket et retourne son URL
// publique.
func (u *Uploader) UploadProductImage(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if u == nil {
		return "", fmt.Errorf("MinIO non initialisé")
	}

	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	ext := strings.ToLower(path.Ext(file.Filename))
	if ext == "" {
		ext = ".jpg"
	}
	object := fmt.Sprintf("products/%d-%s%s", time.Now().UnixMilli(), uuid.NewString()[:8], ext)

	_, err = u.client.PutObject(ctx, u.bucket, object, f, file.Size,
		minio.PutObjectOptions{ContentType: file.Header.Get("Content-Type")})
	if err != nil {
		return "", err
	}

	scheme := "http"
	if u.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, u.endpoint, u.bucket, object), nil
}
