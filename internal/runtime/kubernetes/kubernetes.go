// Package kubernetes runs provider adapters as Kubernetes Jobs. Each
// evaluation task becomes one Job plus a ConfigMap carrying the benchmark
// payload; the adapter image reports progress through the status-callback
// endpoint like local adapters do.
package kubernetes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8sclient "k8s.io/client-go/kubernetes"

	"github.com/eval-hub/eval-hub/internal/runtime"
	"github.com/eval-hub/eval-hub/pkg/api"
)

const (
	labelManagedBy    = "app.kubernetes.io/managed-by"
	labelJobID        = "eval-hub.io/job-id"
	labelEvaluationID = "eval-hub.io/evaluation-id"

	managedByValue = "eval-hub"

	// Finished Jobs and their pods are garbage collected after an hour;
	// results live in storage, not in the cluster.
	ttlSecondsAfterFinished = int32(3600)
	backoffLimit            = int32(0)
)

// Runtime creates Kubernetes Jobs for evaluation tasks.
type Runtime struct {
	clientset k8sclient.Interface
	namespace string
	log       *slog.Logger
}

// New connects to the cluster and returns a Kubernetes runtime operating
// in the given namespace.
func New(namespace string, log *slog.Logger) (*Runtime, error) {
	clientset, err := newClientset()
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	return &Runtime{clientset: clientset, namespace: namespace, log: log}, nil
}

// NewWithClientset is for tests that inject a fake clientset.
func NewWithClientset(clientset k8sclient.Interface, namespace string, log *slog.Logger) *Runtime {
	return &Runtime{clientset: clientset, namespace: namespace, log: log}
}

func (r *Runtime) Name() string {
	return "kubernetes"
}

// RunEvaluationJob creates the ConfigMap and Job for every task. Creation
// stops at the first failure; Jobs already created keep running and
// report their own outcomes.
func (r *Runtime) RunEvaluationJob(ctx context.Context, tasks []runtime.EvaluationTask) error {
	for _, task := range tasks {
		if err := r.runTask(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) runTask(ctx context.Context, task runtime.EvaluationTask) error {
	if task.Provider.Runtime == nil || task.Provider.Runtime.K8s == nil {
		return fmt.Errorf("provider %s has no kubernetes runtime configuration", task.Provider.ID)
	}
	spec := task.Provider.Runtime.K8s

	if _, err := r.createPayloadConfigMap(ctx, task); err != nil {
		return fmt.Errorf("failed to create payload configmap for evaluation %s: %w", task.EvaluationID, err)
	}
	if _, err := r.createJob(ctx, task, spec); err != nil {
		return fmt.Errorf("failed to create job for evaluation %s: %w", task.EvaluationID, err)
	}

	r.log.Info("created kubernetes job",
		"provider_id", task.Provider.ID,
		"benchmark", task.Benchmark.Name,
		"evaluation_id", task.EvaluationID,
		"namespace", r.namespace)
	return nil
}

// createPayloadConfigMap stores the benchmark config so adapters with
// payloads too large for environment variables can mount them.
func (r *Runtime) createPayloadConfigMap(ctx context.Context, task runtime.EvaluationTask) (*corev1.ConfigMap, error) {
	payload, err := json.Marshal(task.Benchmark)
	if err != nil {
		return nil, err
	}
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: r.namespace,
			Name:      resourceName(task),
			Labels:    taskLabels(task),
		},
		Data: map[string]string{"benchmark.json": string(payload)},
	}
	return r.clientset.CoreV1().ConfigMaps(r.namespace).Create(ctx, cm, metav1.CreateOptions{})
}

func (r *Runtime) createJob(ctx context.Context, task runtime.EvaluationTask, spec *api.K8sRuntime) (*batchv1.Job, error) {
	requirements, err := resourceRequirements(spec)
	if err != nil {
		return nil, err
	}

	env := adapterEnv(task)
	for _, v := range spec.Env {
		env = append(env, corev1.EnvVar{Name: v.Name, Value: v.Value})
	}

	ttl := ttlSecondsAfterFinished
	backoff := backoffLimit
	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: r.namespace,
			Name:      resourceName(task),
			Labels:    taskLabels(task),
		},
		Spec: batchv1.JobSpec{
			TTLSecondsAfterFinished: &ttl,
			BackoffLimit:            &backoff,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: taskLabels(task)},
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyNever,
					Containers: []corev1.Container{
						{
							Name:      "adapter",
							Image:     spec.Image,
							Command:   spec.Entrypoint,
							Env:       env,
							Resources: requirements,
							VolumeMounts: []corev1.VolumeMount{
								{Name: "payload", MountPath: "/etc/eval-hub", ReadOnly: true},
							},
						},
					},
					Volumes: []corev1.Volume{
						{
							Name: "payload",
							VolumeSource: corev1.VolumeSource{
								ConfigMap: &corev1.ConfigMapVolumeSource{
									LocalObjectReference: corev1.LocalObjectReference{Name: resourceName(task)},
								},
							},
						},
					},
				},
			},
		},
	}
	return r.clientset.BatchV1().Jobs(r.namespace).Create(ctx, job, metav1.CreateOptions{})
}

func resourceRequirements(spec *api.K8sRuntime) (corev1.ResourceRequirements, error) {
	requirements := corev1.ResourceRequirements{
		Requests: corev1.ResourceList{},
		Limits:   corev1.ResourceList{},
	}
	for _, q := range []struct {
		value string
		list  corev1.ResourceList
		name  corev1.ResourceName
	}{
		{spec.CPURequest, requirements.Requests, corev1.ResourceCPU},
		{spec.MemoryRequest, requirements.Requests, corev1.ResourceMemory},
		{spec.CPULimit, requirements.Limits, corev1.ResourceCPU},
		{spec.MemoryLimit, requirements.Limits, corev1.ResourceMemory},
	} {
		if q.value == "" {
			continue
		}
		quantity, err := resource.ParseQuantity(q.value)
		if err != nil {
			return requirements, fmt.Errorf("invalid resource quantity %q: %w", q.value, err)
		}
		q.list[q.name] = quantity
	}
	return requirements, nil
}

func adapterEnv(task runtime.EvaluationTask) []corev1.EnvVar {
	env := []corev1.EnvVar{
		{Name: "EVAL_HUB_JOB_ID", Value: task.JobID.String()},
		{Name: "EVAL_HUB_EVALUATION_ID", Value: task.EvaluationID.String()},
		{Name: "EVAL_HUB_PROVIDER_ID", Value: task.Provider.ID},
		{Name: "EVAL_HUB_BENCHMARK", Value: task.Benchmark.Name},
		{Name: "EVAL_HUB_MODEL_NAME", Value: task.ModelName},
		{Name: "EVAL_HUB_MODEL_URL", Value: task.ModelURL},
		{Name: "EVAL_HUB_CALLBACK_URL", Value: task.CallbackURL},
	}
	if len(task.Benchmark.Tasks) > 0 {
		env = append(env, corev1.EnvVar{
			Name:  "EVAL_HUB_BENCHMARK_TASKS",
			Value: strings.Join(task.Benchmark.Tasks, ","),
		})
	}
	return env
}

// resourceName derives the Job and ConfigMap name from the evaluation ID,
// which is unique per task.
func resourceName(task runtime.EvaluationTask) string {
	return "eval-" + task.EvaluationID.String()
}

func taskLabels(task runtime.EvaluationTask) map[string]string {
	return map[string]string{
		labelManagedBy:    managedByValue,
		labelJobID:        task.JobID.String(),
		labelEvaluationID: task.EvaluationID.String(),
	}
}
