package baremetal

import "encoding/json"

// Patch is one of the two spec mutations this service performs on a host.
// Implementations serialize themselves to a JSON merge patch at the API
// boundary.
type Patch interface {
	// Operation names the patch kind for logs and errors.
	Operation() string
	// Data returns the merge-patch body.
	Data() ([]byte, error)
}

// ProvisionPatch sets the host's image and its user-data secret reference.
type ProvisionPatch struct {
	ImageURL        string
	Checksum        string
	ChecksumType    string
	ImageFormat     string
	SecretName      string
	SecretNamespace string
}

func (p ProvisionPatch) Operation() string { return "provision" }

func (p ProvisionPatch) Data() ([]byte, error) {
	type imageSpec struct {
		URL          string `json:"url"`
		Checksum     string `json:"checksum"`
		ChecksumType string `json:"checksumType"`
		Format       string `json:"format,omitempty"`
	}
	type secretRef struct {
		Name      string `json:"name"`
		Namespace string `json:"namespace"`
	}
	body := struct {
		Spec struct {
			Image    imageSpec `json:"image"`
			UserData secretRef `json:"userData"`
		} `json:"spec"`
	}{}
	body.Spec.Image = imageSpec{
		URL:          p.ImageURL,
		Checksum:     p.Checksum,
		ChecksumType: p.ChecksumType,
		Format:       p.ImageFormat,
	}
	body.Spec.UserData = secretRef{Name: p.SecretName, Namespace: p.SecretNamespace}
	return json.Marshal(body)
}

// DeprovisionPatch clears the image and user-data reference, returning the
// host to the idle pool. The fields are set to explicit nulls so the merge
// patch removes them regardless of prior state.
type DeprovisionPatch struct{}

func (DeprovisionPatch) Operation() string { return "deprovision" }

func (DeprovisionPatch) Data() ([]byte, error) {
	return []byte(`{"spec":{"image":null,"userData":null}}`), nil
}
