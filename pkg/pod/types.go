package pod

import (
	"time"

	"github.com/fairdatasociety/fairos_sdk_go/internal/dfsapi"
)

// Info describes an owned pod.
type Info struct {
	Name    string
	Address string
}

// SharedInfo describes a pod behind a sharing reference.
type SharedInfo struct {
	Name        string
	Address     string
	Username    string
	UserAddress string
	SharedTime  time.Time
}

// List holds the names returned by List.
type List struct {
	Pods       []string `json:"pod_name"`
	SharedPods []string `json:"shared_pod_name"`
}

type podRequest struct {
	PodName  string `json:"pod_name"`
	Password string `json:"password,omitempty"`
}

type shareResponse struct {
	Reference string `json:"pod_sharing_reference"`
}

type statResponse struct {
	PodName string `json:"pod_name"`
	Address string `json:"address"`
}

type receiveInfoResponse struct {
	PodName     string          `json:"pod_name"`
	PodAddress  string          `json:"pod_address"`
	UserName    string          `json:"user_name"`
	UserAddress string          `json:"user_address"`
	SharedTime  dfsapi.UnixTime `json:"shared_time"`
}
