package k8s

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func controllerPod(name string, phase corev1.PodPhase, ready corev1.ConditionStatus) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: "ci",
			Labels:    map[string]string{"app.kubernetes.io/component": "jenkins-controller"},
		},
		Status: corev1.PodStatus{
			Phase:      phase,
			Conditions: []corev1.PodCondition{{Type: corev1.PodReady, Status: ready}},
		},
	}
}

func TestWaitForPodsReady(t *testing.T) {
	clientset := fake.NewClientset(controllerPod("jenkins-0", corev1.PodRunning, corev1.ConditionTrue))
	client := NewClientFromClientset(clientset)

	err := client.WaitForPodsReady(context.Background(), "ci", "app.kubernetes.io/component=jenkins-controller", time.Second)
	require.NoError(t, err)
}

func TestWaitForPodsReady_NotReady(t *testing.T) {
	tests := []struct {
		name string
		pod  *corev1.Pod
	}{
		{name: "pending", pod: controllerPod("jenkins-0", corev1.PodPending, corev1.ConditionFalse)},
		{name: "running but not ready", pod: controllerPod("jenkins-0", corev1.PodRunning, corev1.ConditionFalse)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClientFromClientset(fake.NewClientset(tt.pod))

			err := client.WaitForPodsReady(context.Background(), "ci", "app.kubernetes.io/component=jenkins-controller", 50*time.Millisecond)
			require.Error(t, err)
		})
	}
}

func TestWaitForPodsReady_NoPods(t *testing.T) {
	client := NewClientFromClientset(fake.NewClientset())

	err := client.WaitForPodsReady(context.Background(), "ci", "app.kubernetes.io/component=jenkins-controller", 50*time.Millisecond)
	require.Error(t, err)
}
